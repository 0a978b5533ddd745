package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"certflow/internal/lifecycle/models"
	"certflow/pkg/platform/httputil"
)

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	var req ReviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid review request", err)
		return
	}
	action, err := req.ParseAction()
	if err != nil {
		h.fail(w, r, "invalid review request", err)
		return
	}
	app, err := h.service.ReviewAction(r.Context(), appID, action, req.Notes)
	if err != nil {
		h.fail(w, r, "review action refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	var req VisibilityRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid visibility request", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, "invalid visibility request", err)
		return
	}
	app, err := h.service.SetVisibility(r.Context(), appID, *req.Visible)
	if err != nil {
		h.fail(w, r, "visibility change refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	entries, err := h.service.ListAudit(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "failed to list audit trail", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditResponse(entries))
}

func (h *Handler) handleGetScorecard(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	sc, err := h.service.GetScorecard(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "failed to load scorecard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toScorecardResponse(sc))
}

func (h *Handler) handleSetDimension(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	dimension, err := models.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		h.fail(w, r, "invalid scorecard dimension", err)
		return
	}
	var req DimensionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid scorecard request", err)
		return
	}
	value, err := models.ParseDimensionStatus(req.Value)
	if err != nil {
		h.fail(w, r, "invalid scorecard value", err)
		return
	}
	sc, err := h.service.SetReviewDimension(r.Context(), appID, dimension, value)
	if err != nil {
		h.fail(w, r, "scorecard update refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toScorecardResponse(sc))
}

func (h *Handler) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	var req NotesRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid scorecard request", err)
		return
	}
	sc, err := h.service.SetReviewNotes(r.Context(), appID, req.Notes)
	if err != nil {
		h.fail(w, r, "scorecard update refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toScorecardResponse(sc))
}

func (h *Handler) handleGetCertificate(w http.ResponseWriter, r *http.Request) {
	certID, err := certificateID(r)
	if err != nil {
		h.fail(w, r, "invalid certificate id", err)
		return
	}
	cert, err := h.service.GetCertificate(r.Context(), certID)
	if err != nil {
		h.fail(w, r, "failed to load certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	certID, err := certificateID(r)
	if err != nil {
		h.fail(w, r, "invalid certificate id", err)
		return
	}
	var req RevokeRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.fail(w, r, "invalid revoke request", err)
			return
		}
	}
	cert, err := h.service.RevokeCertificate(r.Context(), certID, req.Reason)
	if err != nil {
		h.fail(w, r, "revocation refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *Handler) handleReissue(w http.ResponseWriter, r *http.Request) {
	certID, err := certificateID(r)
	if err != nil {
		h.fail(w, r, "invalid certificate id", err)
		return
	}
	cert, err := h.service.ReissueCertificate(r.Context(), certID)
	if err != nil {
		h.fail(w, r, "reissue refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *Handler) handleRequestPayment(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	p, err := h.service.RequestPayment(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "payment request refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	pid, err := paymentID(r)
	if err != nil {
		h.fail(w, r, "invalid payment id", err)
		return
	}
	p, err := h.service.CancelPayment(r.Context(), pid)
	if err != nil {
		h.fail(w, r, "cancellation refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}
