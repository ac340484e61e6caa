// Package api exposes the collected GPU prices, run archive and operational
// endpoints over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/gpumarketwatch/internal/config"
	"github.com/bher20/gpumarketwatch/internal/metrics"
	"github.com/bher20/gpumarketwatch/internal/notification"
	"github.com/bher20/gpumarketwatch/internal/storage"
)

// NewMux constructs the HTTP mux, wiring in the price endpoints, metrics and
// health checks. The site directory is served at /ui/ so the same binary can
// host the generated dashboard.
func NewMux(svc config.ServiceConfig, st storage.Storage, notifSvc *notification.Service) *http.ServeMux {
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			http.Error(w, "storage not configured", http.StatusServiceUnavailable)
			return
		}
		if err := st.Ping(r.Context()); err != nil {
			http.Error(w, "storage not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Price API.
	mux.HandleFunc("/prices", instrument("/prices", handlePrices(svc, st)))
	mux.HandleFunc("/prices/", instrument("/prices/{provider}", handleProviderPrices(svc, st)))
	mux.HandleFunc("/runs", instrument("/runs", handleRuns(st)))

	RegisterProvidersHandler(mux)
	RegisterRefreshHandler(mux, svc, st)
	if notifSvc != nil {
		registerNotificationRoutes(mux, notifSvc)
	}

	// Generated dashboard.
	mux.Handle("/ui/", http.StripPrefix("/ui/", http.FileServer(http.Dir(svc.SiteDir))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})

	return mux
}

// instrument records request count and duration under a stable path label.
func instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestsTotal.WithLabelValues(path).Inc()
		defer func() {
			metrics.RequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
		}()
		next(w, r)
	}
}
