package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"certflow/internal/lifecycle/metrics"
	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
	flushed bool
	closed  bool
	ctxErrs []error
}

func (p *fakeProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.mu.Lock()
	p.records = append(p.records, r)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	p.mu.Unlock()
	promise(r, p.err)
}

func (p *fakeProducer) Flush(context.Context) error {
	p.flushed = true
	return nil
}

func (p *fakeProducer) Close() { p.closed = true }

func sampleChange() models.StatusChange {
	return models.StatusChange{
		ApplicationID: id.NewApplicationID(),
		AccountID:     id.AccountID(uuid.New()),
		Action:        models.ActionApprove,
		From:          models.StatusUnderReview,
		To:            models.StatusCertified,
		ActorID:       id.ActorID(uuid.New()),
		OccurredAt:    time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaNotifier_PublishesKeyedJSON(t *testing.T) {
	p := &fakeProducer{}
	n := newKafkaNotifier(p, "certflow.status-changes")
	change := sampleChange()

	n.StatusChanged(context.Background(), change)

	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "certflow.status-changes", rec.Topic)
	assert.Equal(t, change.ApplicationID.String(), string(rec.Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, "approve", decoded["action"])
	assert.Equal(t, "certified", decoded["to"])
	assert.Equal(t, change.ApplicationID.String(), decoded["application_id"])
}

func TestKafkaNotifier_DeliveryFailureIsCountedNotReturned(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWith(reg)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	p := &fakeProducer{err: errors.New("broker unavailable")}
	n := newKafkaNotifier(p, "t", WithMetrics(m), WithLogger(logger))

	n.StatusChanged(context.Background(), sampleChange())

	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationFailures), 0)
	assert.Contains(t, buf.String(), "broker unavailable")
}

func TestKafkaNotifier_OutlivesRequestContext(t *testing.T) {
	p := &fakeProducer{}
	n := newKafkaNotifier(p, "certflow.status-changes", WithLogger(slog.New(slog.DiscardHandler)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.StatusChanged(ctx, sampleChange())

	require.Len(t, p.ctxErrs, 1)
	assert.NoError(t, p.ctxErrs[0], "a finished request must not fail the buffered record")
}

func TestKafkaNotifier_CloseFlushes(t *testing.T) {
	p := &fakeProducer{}
	n := newKafkaNotifier(p, "t")
	require.NoError(t, n.Close(context.Background()))
	assert.True(t, p.flushed)
	assert.True(t, p.closed)
}

func TestNewKafkaNotifier_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaNotifier(nil, "t")
	require.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	change := sampleChange()
	n.StatusChanged(context.Background(), change)

	out := buf.String()
	assert.Contains(t, out, "application status changed")
	assert.Contains(t, out, change.ApplicationID.String())
	assert.Contains(t, out, `"to":"certified"`)
}
