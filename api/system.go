package api

import (
	"net/http"
	"runtime"

	"github.com/semihalev/zlog/v2"
	"github.com/shirou/gopsutil/v3/mem"
)

// system reports host memory and Go runtime figures.
func (a *API) system(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := Json{
		"cpu_cores":       runtime.NumCPU(),
		"goroutines":      runtime.NumGoroutine(),
		"go_mem_alloc_mb": memStats.Alloc / 1024 / 1024,
		"mem_total_mb":    0,
		"mem_used_mb":     0,
		"mem_usage_pct":   0.0,
	}

	memInfo, err := mem.VirtualMemory()
	if err != nil {
		zlog.Warn("Host memory stats unavailable", "error", err.Error())
	} else {
		stats["mem_total_mb"] = memInfo.Total / 1024 / 1024
		stats["mem_used_mb"] = memInfo.Used / 1024 / 1024
		stats["mem_usage_pct"] = memInfo.UsedPercent
	}

	writeJSON(w, http.StatusOK, stats)
}
