// Package expiry runs the periodic certificate expiry sweep.
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron"
)

// Expirer marks due certificates expired and reports how many changed.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Sweeper schedules Expirer on a cron spec. Runs never overlap: a tick that
// fires while the previous sweep is still going is skipped.
type Sweeper struct {
	expirer Expirer
	spec    string
	timeout time.Duration
	logger  *slog.Logger

	cron    *cron.Cron
	running sync.Mutex
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithTimeout bounds each sweep.
func WithTimeout(d time.Duration) Option {
	return func(s *Sweeper) {
		s.timeout = d
	}
}

// New validates spec and returns a stopped sweeper.
func New(expirer Expirer, spec string, opts ...Option) (*Sweeper, error) {
	s := &Sweeper{
		expirer: expirer,
		spec:    spec,
		timeout: time.Minute,
		logger:  slog.Default(),
		cron:    cron.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "certificate expiry sweeper started", "schedule", s.spec)
	s.cron.Start()
	<-ctx.Done()
	s.cron.Stop()
	// Wait for an in-flight sweep.
	s.running.Lock()
	defer s.running.Unlock()
	s.logger.Info("certificate expiry sweeper stopped")
	return nil
}

func (s *Sweeper) tick() {
	if !s.running.TryLock() {
		s.logger.Warn("certificate expiry sweep still running, skipping tick")
		return
	}
	defer s.running.Unlock()
	s.sweep(context.Background())
}

// SweepOnce runs a single sweep immediately.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	s.running.Lock()
	defer s.running.Unlock()
	return s.sweep(ctx)
}

func (s *Sweeper) sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "certificate expiry sweep failed",
			"expired", n,
			"error", err,
		)
		return n, err
	}
	s.logger.InfoContext(ctx, "certificate expiry sweep finished",
		"expired", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}
