// Package audit defines the append-only audit log of lifecycle actions.
//
// Every successful guarded action appends exactly one Entry, inside the same
// transaction as the state change it records. Failed guards append nothing.
// Entries are never updated or deleted.
package audit

import (
	"context"
	"time"

	id "certflow/pkg/domain"
)

// Action is the machine-readable name of an audited action.
type Action string

const (
	ActionApplicationCreated Action = "application_created"
	ActionSubmitted          Action = "application_submitted"
	ActionReviewStarted      Action = "review_started"
	ActionApproved           Action = "application_approved"
	ActionRejected           Action = "application_rejected"
	ActionRevisionRequested  Action = "revision_requested"
	ActionVisibilityChanged  Action = "listing_visibility_changed"

	ActionCertificateRevoked  Action = "certificate_revoked"
	ActionCertificateReissued Action = "certificate_reissued"
	ActionCertificateExpired  Action = "certificate_expired"

	ActionPaymentRequested Action = "payment_requested"
	ActionPaymentCancelled Action = "payment_cancelled"
	ActionPaymentUpdated   Action = "payment_status_updated"

	ActionScorecardDimensionSet Action = "scorecard_dimension_set"
	ActionScorecardNotesSet     Action = "scorecard_notes_set"
)

// Entry is one audit record. ActorID is the nil UUID for system actions.
type Entry struct {
	ID            id.AuditEntryID
	ActorID       id.ActorID
	ApplicationID id.ApplicationID
	Action        Action
	Description   string
	Timestamp     time.Time
	RequestID     string
}

// Store is the audit sink. Implementations must join the caller's
// transaction when one is present in ctx.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]Entry, error)
}
