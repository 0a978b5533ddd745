package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "certflow/pkg/domain-errors"
	"certflow/pkg/platform/httputil"
)

const (
	signatureHeader = "X-Signature"
	maxWebhookBody  = 64 << 10
)

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.VerifyCertificate(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.fail(w, r, "verification lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// handlePaymentWebhook applies a processor status report. The body must be
// signed with HMAC-SHA256 under the shared webhook secret, hex encoded in
// X-Signature.
func (h *Handler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if len(h.webhookSecret) == 0 {
		h.fail(w, r, "payment webhook disabled", dErrors.New(dErrors.CodeNotFound, "payment webhook is not configured"))
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.fail(w, r, "failed to read webhook body", dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable body"))
		return
	}
	if !validSignature(h.webhookSecret, raw, r.Header.Get(signatureHeader)) {
		h.fail(w, r, "payment webhook signature rejected", dErrors.New(dErrors.CodeUnauthorized, "invalid signature"))
		return
	}

	var req PaymentWebhookRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.fail(w, r, "invalid webhook body", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	pid, event, err := req.Parse()
	if err != nil {
		h.fail(w, r, "invalid webhook body", err)
		return
	}
	p, err := h.service.ApplyProcessorEvent(r.Context(), pid, event)
	if err != nil {
		h.fail(w, r, "payment event refused", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(p))
}

func validSignature(secret, body []byte, header string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(provided) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}

// Sign returns the X-Signature value for body. Processors and tests use it
// to produce valid callbacks.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
