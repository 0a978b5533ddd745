package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	lifecyclemetrics "certflow/internal/lifecycle/metrics"
	"certflow/internal/lifecycle/notify"
	"certflow/internal/lifecycle/service"
	"certflow/internal/lifecycle/store"
	"certflow/internal/lifecycle/store/application"
	"certflow/internal/lifecycle/store/certificate"
	"certflow/internal/lifecycle/store/payment"
	"certflow/internal/lifecycle/store/scorecard"
	"certflow/internal/lifecycle/store/verifycache"
	"certflow/internal/platform/config"
	"certflow/internal/platform/postgres"
	platformredis "certflow/internal/platform/redis"
	"certflow/pkg/platform/audit"
	"certflow/pkg/platform/audit/publisher"
	auditmemory "certflow/pkg/platform/audit/store/memory"
	auditpostgres "certflow/pkg/platform/audit/store/postgres"
)

const closeTimeout = 10 * time.Second

// runtime holds the wired service and the infrastructure it owns.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sql.DB
	redis   *platformredis.Client
	kafka   *notify.KafkaNotifier
	metrics *lifecyclemetrics.Metrics
	service *service.Service
}

// build connects the configured backends and assembles the lifecycle
// service. An empty db.url runs on in-memory stores.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg, logger: logger, metrics: lifecyclemetrics.New()}
	defer func() {
		if err != nil {
			rt.close()
		}
	}()

	stores, tx, auditStore, err := rt.persistence(ctx, migrate)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(rt.metrics),
		service.WithTracer(otel.Tracer("certflow/lifecycle")),
	}

	rt.redis, err = platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if rt.redis != nil {
		logger.Info("verification cache enabled", "ttl", cfg.Redis.VerifyCacheTTL)
		opts = append(opts, service.WithVerificationCache(verifycache.NewRedis(rt.redis.Client, cfg.Redis.VerifyCacheTTL)))
	}

	notifier, err := rt.notifier(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, service.WithNotifier(notifier))

	rt.service = service.New(
		stores,
		tx,
		publisher.New(auditStore, publisher.WithLogger(logger)),
		service.Config{
			CompletenessThreshold:     cfg.Review.CompletenessThreshold,
			RequireReadyScorecard:     cfg.Review.RequireReadyScorecard,
			CertificateValidityMonths: cfg.Certificate.ValidityMonths,
			VerificationBaseURL:       cfg.Certificate.VerificationBaseURL,
			PaymentFee:                cfg.Payment.FeeDecimal(),
			PaymentCurrency:           cfg.Payment.Currency,
			InvoicePrefix:             cfg.Payment.InvoicePrefix,
		},
		opts...,
	)
	return rt, nil
}

func (rt *runtime) persistence(ctx context.Context, migrate bool) (service.Stores, service.StoreTx, audit.Store, error) {
	if rt.cfg.DB.URL == "" {
		rt.logger.Warn("db.url not set, running on in-memory stores")
		return service.Stores{
			Applications: application.NewInMemory(),
			Certificates: certificate.NewInMemory(),
			Payments:     payment.NewInMemory(),
			Scorecards:   scorecard.NewInMemory(),
		}, service.NewShardedTx(rt.cfg.DB.TxTimeout), auditmemory.NewInMemoryStore(), nil
	}

	db, err := postgres.Open(ctx, rt.cfg.DB)
	if err != nil {
		return service.Stores{}, nil, nil, err
	}
	rt.db = db
	if migrate {
		if err := postgres.Migrate(ctx, db, rt.logger); err != nil {
			return service.Stores{}, nil, nil, err
		}
	}
	return service.Stores{
		Applications: application.NewPostgres(db),
		Certificates: certificate.NewPostgres(db),
		Payments:     payment.NewPostgres(db),
		Scorecards:   scorecard.NewPostgres(db),
	}, store.NewPostgresTx(db, rt.cfg.DB.TxTimeout), auditpostgres.New(db), nil
}

func (rt *runtime) notifier(ctx context.Context) (service.Notifier, error) {
	kcfg := rt.cfg.Kafka
	if len(kcfg.Brokers) == 0 {
		return notify.NewLogNotifier(rt.logger), nil
	}
	kafka, err := notify.NewKafkaNotifier(kcfg.Brokers, kcfg.Topic,
		notify.WithLogger(rt.logger),
		notify.WithMetrics(rt.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka notifier: %w", err)
	}
	rt.kafka = kafka
	if err := kafka.EnsureTopic(ctx, notify.TopicConfig{
		Name:              kcfg.Topic,
		Partitions:        kcfg.Partitions,
		ReplicationFactor: kcfg.ReplicationFactor,
	}); err != nil {
		return nil, fmt.Errorf("failed to ensure topic %s: %w", kcfg.Topic, err)
	}
	rt.logger.Info("status changes published to kafka", "topic", kcfg.Topic, "brokers", kcfg.Brokers)
	return kafka, nil
}

// health reports the first failing backend.
func (rt *runtime) health(ctx context.Context) error {
	if rt.db != nil {
		if err := rt.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// close flushes pending notifications before releasing connections.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if rt.kafka != nil {
		if err := rt.kafka.Close(ctx); err != nil {
			rt.logger.Warn("kafka notifier close failed", "error", err)
		}
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}
