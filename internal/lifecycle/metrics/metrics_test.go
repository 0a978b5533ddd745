package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	m.IncrementTransition("approve", "certified")
	m.IncrementTransition("approve", "certified")
	m.IncrementGuardRejected("submit", "missing_documents")
	m.IncrementCertificates("issued")
	m.AddCertificates("expired", 3)
	m.AddCertificates("expired", 0)
	m.IncrementPayments("pending")
	m.IncrementNotificationFailures()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("approve", "certified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardRejections.WithLabelValues("submit", "missing_documents")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Certificates.WithLabelValues("issued")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Certificates.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Payments.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailures))
}
