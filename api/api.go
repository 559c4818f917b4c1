// Package api serves the admin HTTP endpoints: prometheus metrics, health,
// host stats, cache inspection and purge, and denylist lookups.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/semihalev/zlog/v2"
	"github.com/sinkhole-dns/sinkhole/cache"
	"github.com/sinkhole-dns/sinkhole/denylist"
)

// API type
type API struct {
	addr     string
	cache    *cache.QueryCache
	denylist *denylist.Holder

	mux *http.ServeMux
}

// Json is a JSON object response body.
type Json map[string]any

var debugpprof bool

func init() {
	_, debugpprof = os.LookupEnv("SINKHOLE_PPROF")
}

var extraHeaders = map[string]string{
	"Server":        "sinkhole",
	"Cache-Control": "no-cache, no-store, no-transform, must-revalidate, private, max-age=0",
	"Pragma":        "no-cache",
}

// New return new api
func New(addr string, qc *cache.QueryCache, holder *denylist.Holder) *API {
	a := &API{
		addr:     addr,
		cache:    qc,
		denylist: holder,
		mux:      http.NewServeMux(),
	}

	a.routes()

	return a
}

func (a *API) routes() {
	if debugpprof {
		a.mux.HandleFunc("GET /debug/pprof/", pprof.Index)
		a.mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
		a.mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
		a.mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
		a.mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	}

	a.mux.Handle("GET /metrics", promhttp.Handler())
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /api/v1/system", a.system)
	a.mux.HandleFunc("GET /api/v1/cache/stats", a.cacheStats)
	a.mux.HandleFunc("GET /api/v1/purge/{qname}/{qtype}", a.purge)
	a.mux.HandleFunc("GET /api/v1/denylist/exists/{qname}", a.existsDeny)
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			zlog.Error("Recovered in API", "recover", rec, "stack", string(debug.Stack()))
		}
	}()

	for k, v := range extraHeaders {
		w.Header().Set(k, v)
	}

	a.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	buf, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_, _ = w.Write(buf)
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Json{
		"status":   "ok",
		"denylist": a.denylist.Len(),
		"cache":    a.cache.Len(),
	})
}

func (a *API) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Json{"entries": a.cache.Len()})
}

func (a *API) purge(w http.ResponseWriter, r *http.Request) {
	qname := r.PathValue("qname")
	qtype, ok := dns.StringToType[strings.ToUpper(r.PathValue("qtype"))]
	if !ok {
		writeJSON(w, http.StatusBadRequest, Json{"error": r.PathValue("qtype") + " is not a record type"})
		return
	}

	removed := a.cache.Remove(cache.NewKey(qname, qtype))

	zlog.Info("Cache purge", "qname", qname, "qtype", dns.TypeToString[qtype], "removed", removed)

	writeJSON(w, http.StatusOK, Json{"success": removed})
}

func (a *API) existsDeny(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Json{"exists": a.denylist.Contains(r.PathValue("qname"))})
}

// Run serves the API until ctx is done. An empty address disables it.
func (a *API) Run(ctx context.Context) error {
	if a.addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return err
	}

	return a.Serve(ctx, ln)
}

// Serve serves the API on ln until ctx is done.
func (a *API) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zlog.Info("API server listening...", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()

		zlog.Info("API server stopping...", "addr", ln.Addr().String())

		apiCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(apiCtx); err != nil {
			zlog.Error("Shutdown API server failed", "error", err.Error())
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
