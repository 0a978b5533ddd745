// Package verifycache caches public certificate verification lookups in
// Redis.
package verifycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"certflow/internal/lifecycle/service"
	"certflow/pkg/platform/circuit"
)

var (
	lookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "certflow_verify_cache_lookup_duration_ms",
		Help:    "Latency of verification cache lookups in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	})
	circuitOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certflow_verify_cache_circuit_opened_total",
		Help: "Times the verification cache stopped calling Redis after repeated failures",
	})
)

const (
	keyPrefix  = "verify:"
	DefaultTTL = 5 * time.Minute
)

// RedisCache stores verification views as JSON under verify:<hash>. An
// empty value is a tombstone for a hash that no longer resolves. After
// repeated Redis failures the breaker opens and reads and writes are skipped,
// so lookups fall through to the database without waiting on Redis.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *circuit.Breaker
}

type Option func(*RedisCache)

// WithBreaker replaces the default breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *RedisCache) {
		c.breaker = b
	}
}

// NewRedis constructs the cache. A non-positive ttl falls back to
// DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration, opts ...Option) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &RedisCache{
		client:  client,
		ttl:     ttl,
		breaker: circuit.New("verify-cache", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) record(err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		c.breaker.RecordSuccess()
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		circuitOpened.Inc()
	}
}

func key(hash string) string {
	return keyPrefix + hash
}

// Get returns the cached view, with ok false on a miss. Tombstones and an
// open breaker both report a miss.
func (c *RedisCache) Get(ctx context.Context, hash string) (*service.CertificateVerification, bool, error) {
	if !c.breaker.Allow() {
		return nil, false, nil
	}
	start := time.Now()
	defer func() {
		lookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := c.client.Get(ctx, key(hash)).Bytes()
	c.record(err)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read verification cache: %w", err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	var v service.CertificateVerification
	if err := json.Unmarshal(raw, &v); err != nil {
		// A corrupt entry is a miss until it expires.
		return nil, false, nil
	}
	return &v, true, nil
}

// Fill caches a view read from the store with SET NX. An existing entry,
// tombstones included, wins.
func (c *RedisCache) Fill(ctx context.Context, hash string, v *service.CertificateVerification) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verification: %w", err)
	}
	if !c.breaker.Allow() {
		return nil
	}
	err = c.client.SetNX(ctx, key(hash), raw, c.ttl).Err()
	c.record(err)
	if err != nil {
		return fmt.Errorf("write verification cache: %w", err)
	}
	return nil
}

// Replace overwrites the entry with the committed view, or with an empty
// tombstone when v is nil. It always reaches Redis, even with the breaker
// open, so a revoked certificate is not served from a stale entry once
// Redis recovers.
func (c *RedisCache) Replace(ctx context.Context, hash string, v *service.CertificateVerification) error {
	raw := []byte{}
	if v != nil {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode verification: %w", err)
		}
		raw = encoded
	}
	err := c.client.Set(ctx, key(hash), raw, c.ttl).Err()
	c.record(err)
	if err != nil {
		return fmt.Errorf("replace verification cache: %w", err)
	}
	return nil
}
