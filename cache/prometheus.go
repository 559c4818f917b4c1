package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sinkhole_cache_hits_total",
		Help: "Total number of query cache hits",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sinkhole_cache_misses_total",
		Help: "Total number of query cache misses",
	})

	cacheEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sinkhole_cache_evictions_total",
		Help: "Total number of entries removed from the query cache",
	}, []string{"reason"})

	cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sinkhole_cache_entries",
		Help: "Current number of entries in the query cache",
	})
)

func init() {
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(cacheEvictions)
	prometheus.MustRegister(cacheEntries)
}
