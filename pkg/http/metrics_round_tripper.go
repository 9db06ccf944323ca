package http

import (
	"net/http"
	"sync"

	"github.com/buildbarn/bb-fleet/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	roundTripperPrometheusMetrics sync.Once

	roundTripperRequestsDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buildbarn",
			Subsystem: "http",
			Name:      "round_tripper_requests_duration_seconds",
			Help:      "Amount of time spent per HTTP request, in seconds.",
			Buckets:   util.DecimalExponentialBuckets(-3, 6, 2),
		},
		[]string{"name", "code", "method"})
	roundTripperInFlightRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "buildbarn",
			Subsystem: "http",
			Name:      "round_tripper_in_flight_requests",
			Help:      "Number of HTTP requests that are currently in flight. For workers this includes long polling requests.",
		},
		[]string{"name"})
)

// NewMetricsRoundTripper creates an adapter for http.RoundTripper that
// exposes the duration and the number of in-flight requests as
// Prometheus metrics, labeled with the name of the client.
func NewMetricsRoundTripper(base http.RoundTripper, name string) http.RoundTripper {
	roundTripperPrometheusMetrics.Do(func() {
		prometheus.MustRegister(roundTripperRequestsDurationSeconds)
		prometheus.MustRegister(roundTripperInFlightRequests)
	})

	return promhttp.InstrumentRoundTripperInFlight(
		roundTripperInFlightRequests.WithLabelValues(name),
		promhttp.InstrumentRoundTripperDuration(
			roundTripperRequestsDurationSeconds.MustCurryWith(prometheus.Labels{"name": name}),
			base))
}
