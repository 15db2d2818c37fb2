package visit

import "github.com/prometheus/client_golang/prometheus"

// Metric names as constants for consistency.
const (
	MetricVisitAttempts = "visit_attempts_total"
)

// Visit attempt outcomes.
const (
	outcomeRecorded     = "recorded"
	outcomeDuplicate    = "duplicate"
	outcomeBlocked      = "trigger_blocked"
	outcomeAuthRequired = "auth_required"
	outcomeFailed       = "gateway_failed"
)

// Metrics counts visit attempt outcomes. All operations are thread-safe.
// A nil *Metrics records nothing, so sessions can run unmetered in tests.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics creates the visit metrics collectors. They are not registered;
// call Register to attach them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricVisitAttempts,
				Help: "Total number of visit attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	return reg.Register(m.attempts)
}

func (m *Metrics) incOutcome(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}
