package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"certflow/internal/lifecycle/metrics"
	"certflow/internal/lifecycle/models"
)

// producer is the subset of *kgo.Client the notifier needs.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// KafkaNotifier publishes status changes as JSON records keyed by
// application id, so every change of one application lands on the same
// partition in commit order.
type KafkaNotifier struct {
	client  producer
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type KafkaOption func(*KafkaNotifier)

func WithLogger(logger *slog.Logger) KafkaOption {
	return func(n *KafkaNotifier) {
		n.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) KafkaOption {
	return func(n *KafkaNotifier) {
		n.metrics = m
	}
}

// TopicConfig describes the topic EnsureTopic creates.
type TopicConfig struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// NewKafkaNotifier connects to brokers with the topic as the default
// produce target.
func NewKafkaNotifier(brokers []string, topic string, opts ...KafkaOption) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka notifier requires at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return newKafkaNotifier(client, topic, opts...), nil
}

func newKafkaNotifier(client producer, topic string, opts ...KafkaOption) *KafkaNotifier {
	n := &KafkaNotifier{client: client, topic: topic, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// EnsureTopic creates the notification topic when it does not exist yet.
func (n *KafkaNotifier) EnsureTopic(ctx context.Context, cfg TopicConfig) error {
	client, ok := n.client.(*kgo.Client)
	if !ok {
		return nil
	}
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, cfg.Partitions, cfg.ReplicationFactor, nil, cfg.Name)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.Name, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// StatusChanged enqueues the change and returns immediately. Delivery
// errors are logged from the produce callback. The record outlives the
// request, so it is produced under a context that is never cancelled.
func (n *KafkaNotifier) StatusChanged(ctx context.Context, change models.StatusChange) {
	payload, err := json.Marshal(change)
	if err != nil {
		n.failed(ctx, change, err)
		return
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(change.ApplicationID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(change.Action)},
		},
	}
	ctx = context.WithoutCancel(ctx)
	n.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.failed(ctx, change, err)
		}
	})
}

func (n *KafkaNotifier) failed(ctx context.Context, change models.StatusChange, err error) {
	n.logger.ErrorContext(ctx, "status change notification failed",
		"application_id", change.ApplicationID,
		"action", change.Action,
		"error", err,
	)
	if n.metrics != nil {
		n.metrics.IncrementNotificationFailures()
	}
}

// Close flushes buffered records and closes the client.
func (n *KafkaNotifier) Close(ctx context.Context) error {
	err := n.client.Flush(ctx)
	n.client.Close()
	return err
}
