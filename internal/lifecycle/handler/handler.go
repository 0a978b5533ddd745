// Package handler exposes the certification lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"certflow/internal/lifecycle/models"
	"certflow/internal/lifecycle/service"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/audit"
	"certflow/pkg/platform/httputil"
	"certflow/pkg/platform/middleware/auth"
	"certflow/pkg/requestcontext"
)

// Service is the lifecycle surface the handlers drive.
type Service interface {
	CreateApplication(ctx context.Context, profile models.Profile) (*models.Application, error)
	GetApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	UpdateProfile(ctx context.Context, appID id.ApplicationID, profile models.Profile) (*models.Application, error)
	AttachDocument(ctx context.Context, appID id.ApplicationID, doc models.DocumentRef) (*models.Application, error)
	Readiness(ctx context.Context, appID id.ApplicationID) (*service.Readiness, error)
	Submit(ctx context.Context, appID id.ApplicationID) (*models.Application, error)

	ReviewAction(ctx context.Context, appID id.ApplicationID, action models.Action, notes string) (*models.Application, error)
	SetVisibility(ctx context.Context, appID id.ApplicationID, visible bool) (*models.Application, error)
	ListAudit(ctx context.Context, appID id.ApplicationID) ([]audit.Entry, error)

	GetScorecard(ctx context.Context, appID id.ApplicationID) (*models.Scorecard, error)
	SetReviewDimension(ctx context.Context, appID id.ApplicationID, d models.Dimension, v models.DimensionStatus) (*models.Scorecard, error)
	SetReviewNotes(ctx context.Context, appID id.ApplicationID, notes string) (*models.Scorecard, error)

	GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	CertificateForApplication(ctx context.Context, appID id.ApplicationID) (*models.Certificate, error)
	RevokeCertificate(ctx context.Context, certID id.CertificateID, reason string) (*models.Certificate, error)
	ReissueCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	VerifyCertificate(ctx context.Context, hash string) (*service.CertificateVerification, error)

	RequestPayment(ctx context.Context, appID id.ApplicationID) (*models.PaymentRequest, error)
	CancelPayment(ctx context.Context, paymentID id.PaymentID) (*models.PaymentRequest, error)
	ListPayments(ctx context.Context, appID id.ApplicationID) ([]*models.PaymentRequest, error)
	ApplyProcessorEvent(ctx context.Context, paymentID id.PaymentID, event models.ProcessorEvent) (*models.PaymentRequest, error)
}

// Handler serves the lifecycle routes.
type Handler struct {
	service       Service
	validator     auth.TokenValidator
	webhookSecret []byte
	logger        *slog.Logger
}

// New creates a lifecycle Handler. An empty webhookSecret disables the
// payment processor callback.
func New(svc Service, validator auth.TokenValidator, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		service:       svc,
		validator:     validator,
		webhookSecret: []byte(webhookSecret),
		logger:        logger,
	}
}

// Register mounts every lifecycle route on r.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))

		r.Get("/verify/{hash}", h.handleVerify)
		r.Post("/webhooks/payments", h.handlePaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireActor(h.validator, h.logger))

			r.Route("/applications", func(r chi.Router) {
				r.With(auth.RequireRole(requestcontext.RoleSME, h.logger)).Post("/", h.handleCreate)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.handleGet)
					r.Get("/readiness", h.handleReadiness)
					r.Get("/certificate", h.handleApplicationCertificate)
					r.Get("/payments", h.handleListPayments)

					r.Group(func(r chi.Router) {
						r.Use(auth.RequireRole(requestcontext.RoleSME, h.logger))
						r.Put("/profile", h.handleUpdateProfile)
						r.Post("/documents", h.handleAttachDocument)
						r.Post("/submit", h.handleSubmit)
					})
				})
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(requestcontext.RoleAdmin, h.logger))

				r.Route("/applications/{id}", func(r chi.Router) {
					r.Post("/review", h.handleReview)
					r.Put("/visibility", h.handleVisibility)
					r.Get("/audit", h.handleAudit)
					r.Get("/scorecard", h.handleGetScorecard)
					r.Put("/scorecard/dimensions/{dimension}", h.handleSetDimension)
					r.Put("/scorecard/notes", h.handleSetNotes)
					r.Post("/payments", h.handleRequestPayment)
				})
				r.Get("/certificates/{id}", h.handleGetCertificate)
				r.Post("/certificates/{id}/revoke", h.handleRevoke)
				r.Post("/certificates/{id}/reissue", h.handleReissue)
				r.Post("/payments/{id}/cancel", h.handleCancelPayment)
			})
		})
	})
}

// fail logs and writes err. Domain refusals log at warn; anything else is an
// error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CategoryOf(err) == dErrors.CategoryInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func applicationID(r *http.Request) (id.ApplicationID, error) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		return id.ApplicationID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid application id")
	}
	return appID, nil
}

func certificateID(r *http.Request) (id.CertificateID, error) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		return id.CertificateID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid certificate id")
	}
	return certID, nil
}

func paymentID(r *http.Request) (id.PaymentID, error) {
	pid, err := id.ParsePaymentID(chi.URLParam(r, "id"))
	if err != nil {
		return id.PaymentID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid payment id")
	}
	return pid, nil
}
