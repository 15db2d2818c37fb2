package store

import "github.com/prometheus/client_golang/prometheus"

// Metric names as constants for consistency.
const (
	MetricStoreRequests = "store_requests_total"
)

// Metrics counts store request outcomes. All operations are thread-safe.
// A nil *Metrics is valid and records nothing, so the client can run
// unmetered in tests.
type Metrics struct {
	requests *prometheus.CounterVec
}

// NewMetrics creates the store metrics collectors. They are not registered;
// call Register to attach them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricStoreRequests,
				Help: "Total number of data store requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	return reg.Register(m.requests)
}

// observe records one request outcome. outcome is the HTTP status code or
// "transport_error" when no response was received.
func (m *Metrics) observe(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
}
