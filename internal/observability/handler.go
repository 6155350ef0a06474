// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker returns whether the host is ready to serve requests.
type ReadinessChecker func() bool

// NewRegistry returns a registry preloaded with Go runtime and process
// collectors, so hosts do not pollute the global registry.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// NewHandler returns an http.Handler serving /metrics from gatherer and
// Kubernetes-style probes at /healthz/liveness and /healthz/readiness.
// A nil isReady always reports ready.
func NewHandler(gatherer prometheus.Gatherer, isReady ReadinessChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", handleLiveness)
	mux.HandleFunc("/healthz/readiness", func(w http.ResponseWriter, _ *http.Request) {
		handleReadiness(w, isReady)
	})
	return mux
}

// handleLiveness returns 200 if the process is running.
func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness returns 200 when ready and 503 otherwise.
func handleReadiness(w http.ResponseWriter, isReady ReadinessChecker) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if isReady == nil || isReady() {
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
		return
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	//nolint:errcheck // health check write error is acceptable, client may disconnect
	w.Write([]byte("not ready\n"))
}
