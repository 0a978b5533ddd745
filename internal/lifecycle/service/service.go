// Package service orchestrates the certification lifecycle: it opens the
// per-application transaction, lets the models validate guards through the
// transition table, persists the result with exactly one audit entry, and
// dispatches notifications after commit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"certflow/internal/lifecycle/metrics"
	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/platform/sentinel"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Notifier,VerificationCache

type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Update(ctx context.Context, app *models.Application) error
}

type CertificateStore interface {
	Create(ctx context.Context, cert *models.Certificate) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	FindByApplication(ctx context.Context, appID id.ApplicationID) (*models.Certificate, error)
	FindByHash(ctx context.Context, hash string) (*models.Certificate, error)
	Update(ctx context.Context, cert *models.Certificate) error
	ListDue(ctx context.Context, now time.Time) ([]*models.Certificate, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.PaymentRequest) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*models.PaymentRequest, error)
	FindLiveByApplication(ctx context.Context, appID id.ApplicationID) (*models.PaymentRequest, error)
	ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.PaymentRequest, error)
	Update(ctx context.Context, p *models.PaymentRequest) error
}

type ScorecardStore interface {
	FindByApplication(ctx context.Context, appID id.ApplicationID) (*models.Scorecard, error)
	Save(ctx context.Context, sc *models.Scorecard) error
}

// Stores groups the persistence ports.
type Stores struct {
	Applications ApplicationStore
	Certificates CertificateStore
	Payments     PaymentStore
	Scorecards   ScorecardStore
}

type AuditPublisher interface {
	Emit(ctx context.Context, entry audit.Entry) error
	List(ctx context.Context, applicationID id.ApplicationID) ([]audit.Entry, error)
}

// Notifier receives committed status changes. Implementations must not
// block; delivery failures are theirs to log.
type Notifier interface {
	StatusChanged(ctx context.Context, change models.StatusChange)
}

// CompletenessCalculator scores how ready an application is for submission.
type CompletenessCalculator interface {
	Completeness(app *models.Application) models.Completeness
}

// DocumentCatalog lists the documents on file for an application.
type DocumentCatalog interface {
	Documents(ctx context.Context, app *models.Application) ([]models.DocumentRef, error)
}

// VerificationCache caches public verification lookups by hash. Fill writes
// only when the hash has no entry, so a lookup that read the store before a
// certificate change cannot overwrite what Replace wrote after the commit.
// Replace with a nil view leaves a tombstone that Get reports as a miss.
type VerificationCache interface {
	Get(ctx context.Context, hash string) (*CertificateVerification, bool, error)
	Fill(ctx context.Context, hash string, v *CertificateVerification) error
	Replace(ctx context.Context, hash string, v *CertificateVerification) error
}

// attachedDocuments reads the references stored on the application itself.
type attachedDocuments struct{}

func (attachedDocuments) Documents(_ context.Context, app *models.Application) ([]models.DocumentRef, error) {
	return app.Documents, nil
}

type nopNotifier struct{}

func (nopNotifier) StatusChanged(context.Context, models.StatusChange) {}

// Config holds the business settings the service needs.
type Config struct {
	CompletenessThreshold     int
	RequireReadyScorecard     bool
	CertificateValidityMonths int
	VerificationBaseURL       string
	PaymentFee                decimal.Decimal
	PaymentCurrency           string
	InvoicePrefix             string
}

func (c *Config) applyDefaults() {
	if c.CompletenessThreshold <= 0 {
		c.CompletenessThreshold = 100
	}
	if c.CertificateValidityMonths <= 0 {
		c.CertificateValidityMonths = 12
	}
	if c.VerificationBaseURL == "" {
		c.VerificationBaseURL = "http://localhost:8080"
	}
	if c.PaymentCurrency == "" {
		c.PaymentCurrency = "AED"
	}
	if c.InvoicePrefix == "" {
		c.InvoicePrefix = "INV"
	}
}

// Service implements the certification lifecycle operations.
type Service struct {
	applications ApplicationStore
	certificates CertificateStore
	payments     PaymentStore
	scorecards   ScorecardStore
	tx           StoreTx
	auditor      AuditPublisher
	cfg          Config

	completeness CompletenessCalculator
	documents    DocumentCatalog
	notifier     Notifier
	cache        VerificationCache
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithVerificationCache(c VerificationCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithCompletenessCalculator(c CompletenessCalculator) Option {
	return func(s *Service) {
		if c != nil {
			s.completeness = c
		}
	}
}

func WithDocumentCatalog(d DocumentCatalog) Option {
	return func(s *Service) {
		if d != nil {
			s.documents = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service.
func New(stores Stores, tx StoreTx, auditor AuditPublisher, cfg Config, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		applications: stores.Applications,
		certificates: stores.Certificates,
		payments:     stores.Payments,
		scorecards:   stores.Scorecards,
		tx:           tx,
		auditor:      auditor,
		cfg:          cfg,
		completeness: models.Checklist{},
		documents:    attachedDocuments{},
		notifier:     nopNotifier{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("certflow/lifecycle"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// startSpan opens a span for one service operation.
func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "lifecycle."+name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CategoryOf(err)))
	}
	span.End()
}

// translate converts store facts into domain errors. Domain errors pass
// through unchanged.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := dErrors.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" was changed concurrently")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to process "+what)
}

func (s *Service) loadApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.applications.FindByID(ctx, appID)
	if err != nil {
		return nil, translate(err, "application")
	}
	return app, nil
}

func (s *Service) emit(ctx context.Context, appID id.ApplicationID, action audit.Action, description string) error {
	err := s.auditor.Emit(ctx, audit.Entry{
		ApplicationID: appID,
		Action:        action,
		Description:   description,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit entry")
	}
	return nil
}

// notify dispatches after commit. It never fails the operation.
func (s *Service) notify(ctx context.Context, change *models.StatusChange) {
	if change == nil {
		return
	}
	s.notifier.StatusChanged(context.WithoutCancel(ctx), *change)
}

// rejected records a failed guard for observability.
func (s *Service) rejected(ctx context.Context, op string, appID id.ApplicationID, err error) {
	de, ok := dErrors.From(err)
	if !ok || de.Code.Category() == dErrors.CategoryInternal {
		s.logger.ErrorContext(ctx, "lifecycle operation failed",
			"operation", op,
			"application_id", appID,
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "lifecycle guard rejected",
		"operation", op,
		"application_id", appID,
		"code", de.Code,
	)
	if s.metrics != nil {
		s.metrics.IncrementGuardRejected(op, string(de.Code))
	}
}
