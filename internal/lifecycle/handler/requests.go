package handler

import (
	"strings"
	"time"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	dErrors "certflow/pkg/domain-errors"
)

// ProfileRequest carries the full profile for create and update.
type ProfileRequest struct {
	Profile models.Profile `json:"profile"`
}

// AttachDocumentRequest references a document stored elsewhere.
type AttachDocumentRequest struct {
	Type       string    `json:"type"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (r AttachDocumentRequest) ToModel() (models.DocumentRef, error) {
	docType, err := models.ParseDocumentType(strings.TrimSpace(r.Type))
	if err != nil {
		return models.DocumentRef{}, err
	}
	return models.DocumentRef{
		Type:       docType,
		StorageKey: r.StorageKey,
		FileName:   r.FileName,
		UploadedAt: r.UploadedAt,
	}, nil
}

// ReviewRequest is an admin decision. Notes are kept verbatim.
type ReviewRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

func (r ReviewRequest) ParseAction() (models.Action, error) {
	return models.ParseReviewAction(strings.TrimSpace(r.Action))
}

type VisibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (r VisibilityRequest) Validate() error {
	if r.Visible == nil {
		return dErrors.New(dErrors.CodeBadRequest, "visible is required")
	}
	return nil
}

type DimensionRequest struct {
	Value string `json:"value"`
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

type RevokeRequest struct {
	Reason string `json:"reason"`
}

// PaymentWebhookRequest is the processor callback body.
type PaymentWebhookRequest struct {
	PaymentID string `json:"payment_id"`
	Event     string `json:"event"`
}

func (r PaymentWebhookRequest) Parse() (id.PaymentID, models.ProcessorEvent, error) {
	pid, err := id.ParsePaymentID(strings.TrimSpace(r.PaymentID))
	if err != nil {
		return id.PaymentID{}, "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid payment_id")
	}
	ev, err := models.ParseProcessorEvent(strings.TrimSpace(r.Event))
	if err != nil {
		return id.PaymentID{}, "", err
	}
	return pid, ev, nil
}
