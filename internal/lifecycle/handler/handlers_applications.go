package handler

import (
	"net/http"

	"certflow/pkg/platform/httputil"
)

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid create application request", err)
		return
	}
	app, err := h.service.CreateApplication(r.Context(), req.Profile)
	if err != nil {
		h.fail(w, r, "failed to create application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	app, err := h.service.GetApplication(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "failed to load application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	readiness, err := h.service.Readiness(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "failed to compute readiness", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, readiness)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	var req ProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid profile request", err)
		return
	}
	app, err := h.service.UpdateProfile(r.Context(), appID, req.Profile)
	if err != nil {
		h.fail(w, r, "failed to update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleAttachDocument(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	var req AttachDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "invalid document request", err)
		return
	}
	doc, err := req.ToModel()
	if err != nil {
		h.fail(w, r, "invalid document request", err)
		return
	}
	app, err := h.service.AttachDocument(r.Context(), appID, doc)
	if err != nil {
		h.fail(w, r, "failed to attach document", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	app, err := h.service.Submit(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "submission refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

func (h *Handler) handleApplicationCertificate(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	cert, err := h.service.CertificateForApplication(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "failed to load certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(cert))
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	appID, err := applicationID(r)
	if err != nil {
		h.fail(w, r, "invalid application id", err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), appID)
	if err != nil {
		h.fail(w, r, "failed to list payments", err)
		return
	}
	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
