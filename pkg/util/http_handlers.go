package util

import (
	"net/http"
	// The pprof package does not provide a function for registering
	// its endpoints against an arbitrary mux. Load it to force
	// registration against the default mux, so we can forward
	// traffic to that mux instead.
	_ "net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterPrometheusHTTPEndpoint exposes the Prometheus metrics
// returned by a Gatherer under "/metrics".
func RegisterPrometheusHTTPEndpoint(router *mux.Router, gatherer prometheus.Gatherer) {
	router.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterPprofHTTPEndpoints exposes the Go profiler under
// "/debug/pprof/".
func RegisterPprofHTTPEndpoints(router *mux.Router) {
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}
