package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the certification lifecycle.
// Tracks transitions, rejected guards, certificate and payment activity.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	TransitionDuration   prometheus.Histogram
	GuardRejections      *prometheus.CounterVec
	Certificates         *prometheus.CounterVec
	Payments             *prometheus.CounterVec
	NotificationFailures prometheus.Counter
}

// New registers the lifecycle metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the lifecycle metrics with reg. Tests pass a fresh
// registry so constructors can run more than once.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certflow_transitions_total",
			Help: "Total number of committed application transitions",
		}, []string{"action", "to"}),
		TransitionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certflow_transition_duration_seconds",
			Help:    "Duration of guarded transitions including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		GuardRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certflow_guard_rejections_total",
			Help: "Total number of operations refused by a lifecycle guard",
		}, []string{"operation", "code"}),
		Certificates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certflow_certificates_total",
			Help: "Certificate lifecycle events by kind (issued, reissued, revoked, expired)",
		}, []string{"kind"}),
		Payments: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certflow_payment_requests_total",
			Help: "Payment request status changes by resulting status",
		}, []string{"status"}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "certflow_notification_failures_total",
			Help: "Total number of status change notifications that could not be delivered",
		}),
	}
}

// IncrementTransition records a committed transition.
func (m *Metrics) IncrementTransition(action, to string) {
	m.Transitions.WithLabelValues(action, to).Inc()
}

// ObserveTransition records the duration of a guarded transition.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementGuardRejected(operation, code string) {
	m.GuardRejections.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementCertificates(kind string) {
	m.Certificates.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddCertificates(kind string, n int) {
	m.Certificates.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncrementPayments(status string) {
	m.Payments.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementNotificationFailures() {
	m.NotificationFailures.Inc()
}
