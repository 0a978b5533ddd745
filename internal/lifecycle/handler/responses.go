package handler

import (
	"time"

	"certflow/internal/lifecycle/models"
	"certflow/pkg/platform/audit"
)

type ApplicationResponse struct {
	ID             string               `json:"id"`
	AccountID      string               `json:"account_id"`
	Status         models.Status        `json:"status"`
	Notes          string               `json:"notes,omitempty"`
	ListingVisible bool                 `json:"listing_visible"`
	ReviewerID     string               `json:"reviewer_id,omitempty"`
	StateChangedAt *time.Time           `json:"state_changed_at,omitempty"`
	Profile        models.Profile       `json:"profile"`
	Documents      []models.DocumentRef `json:"documents"`
	SubmittedAt    *time.Time           `json:"submitted_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func toApplicationResponse(app *models.Application) ApplicationResponse {
	rec := app.Record()
	resp := ApplicationResponse{
		ID:             app.ID.String(),
		AccountID:      app.AccountID.String(),
		Status:         rec.Status,
		Notes:          rec.Notes,
		ListingVisible: rec.ListingVisible,
		Profile:        app.Profile,
		Documents:      app.Documents,
		SubmittedAt:    app.SubmittedAt,
		CreatedAt:      app.CreatedAt,
		UpdatedAt:      app.UpdatedAt,
	}
	if resp.Documents == nil {
		resp.Documents = []models.DocumentRef{}
	}
	if !rec.ReviewerID.IsNil() {
		resp.ReviewerID = rec.ReviewerID.String()
	}
	if !rec.ChangedAt.IsZero() {
		changed := rec.ChangedAt
		resp.StateChangedAt = &changed
	}
	return resp
}

type RevocationResponse struct {
	Reason    string    `json:"reason,omitempty"`
	RevokedAt time.Time `json:"revoked_at"`
}

type CertificateResponse struct {
	ID               string                   `json:"id"`
	Number           string                   `json:"certificate_number"`
	ApplicationID    string                   `json:"application_id"`
	Version          int                      `json:"version"`
	Status           models.CertificateStatus `json:"status"`
	IssuedAt         time.Time                `json:"issued_at"`
	ExpiresAt        time.Time                `json:"expires_at"`
	VerificationHash string                   `json:"verification_hash"`
	VerificationURL  string                   `json:"verification_url"`
	Revocation       *RevocationResponse      `json:"revocation,omitempty"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

func toCertificateResponse(c *models.Certificate) CertificateResponse {
	resp := CertificateResponse{
		ID:               c.ID.String(),
		Number:           c.Number,
		ApplicationID:    c.ApplicationID.String(),
		Version:          c.Version,
		Status:           c.Status,
		IssuedAt:         c.IssuedAt,
		ExpiresAt:        c.ExpiresAt,
		VerificationHash: c.Verification.Hash,
		VerificationURL:  c.Verification.URL,
		UpdatedAt:        c.UpdatedAt,
	}
	if c.Revocation != nil {
		resp.Revocation = &RevocationResponse{Reason: c.Revocation.Reason, RevokedAt: c.Revocation.RevokedAt}
	}
	return resp
}

type PaymentResponse struct {
	ID            string               `json:"id"`
	ApplicationID string               `json:"application_id"`
	Status        models.PaymentStatus `json:"status"`
	Amount        string               `json:"amount"`
	Currency      string               `json:"currency"`
	InvoiceNumber string               `json:"invoice_number"`
	RequestedAt   time.Time            `json:"requested_at"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
}

func toPaymentResponse(p *models.PaymentRequest) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		ApplicationID: p.ApplicationID.String(),
		Status:        p.Status,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		InvoiceNumber: p.InvoiceNumber,
		RequestedAt:   p.RequestedAt,
		PaidAt:        p.PaidAt,
		CancelledAt:   p.CancelledAt,
	}
}

type ScorecardResponse struct {
	ApplicationID        string                                      `json:"application_id"`
	Dimensions           map[models.Dimension]models.DimensionStatus `json:"dimensions"`
	InternalNotes        string                                      `json:"internal_notes"`
	LastInternalReviewAt *time.Time                                  `json:"last_internal_review_at,omitempty"`
	ReadyForApproval     bool                                        `json:"ready_for_approval"`
}

func toScorecardResponse(sc *models.Scorecard) ScorecardResponse {
	dims := make(map[models.Dimension]models.DimensionStatus, len(models.Dimensions))
	for _, d := range models.Dimensions {
		dims[d] = sc.Value(d)
	}
	return ScorecardResponse{
		ApplicationID:        sc.ApplicationID.String(),
		Dimensions:           dims,
		InternalNotes:        sc.InternalNotes,
		LastInternalReviewAt: sc.LastInternalReviewAt,
		ReadyForApproval:     sc.AllReady(),
	}
}

type AuditEntryResponse struct {
	ID          string       `json:"id"`
	ActorID     string       `json:"actor_id"`
	Action      audit.Action `json:"action"`
	Description string       `json:"description"`
	Timestamp   time.Time    `json:"timestamp"`
	RequestID   string       `json:"request_id,omitempty"`
}

func toAuditResponse(entries []audit.Entry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:          e.ID.String(),
			ActorID:     e.ActorID.String(),
			Action:      e.Action,
			Description: e.Description,
			Timestamp:   e.Timestamp,
			RequestID:   e.RequestID,
		})
	}
	return out
}
