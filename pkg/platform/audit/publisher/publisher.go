// Package publisher emits audit entries with fail-closed semantics.
//
// Writes are synchronous: when the entry cannot be persisted the caller gets
// an error and must abort its transaction, so a state change is never
// committed without its audit record.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	id "certflow/pkg/domain"
	audit "certflow/pkg/platform/audit"
	"certflow/pkg/requestcontext"
)

// Publisher appends entries to an audit.Store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a publisher over store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills in id, timestamp, actor and request id from ctx when missing,
// then appends the entry.
func (p *Publisher) Emit(ctx context.Context, entry audit.Entry) error {
	if entry.Action == "" {
		return fmt.Errorf("audit entry requires Action")
	}
	if entry.ApplicationID.IsNil() {
		return fmt.Errorf("audit entry requires ApplicationID")
	}
	if entry.ID == (id.AuditEntryID{}) {
		entry.ID = id.NewAuditEntryID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.ActorID == id.SystemActor {
		entry.ActorID = requestcontext.ActorID(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, entry); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit append failed",
				"action", entry.Action,
				"application_id", entry.ApplicationID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}
	return nil
}

// List returns the audit trail of one application, oldest first.
func (p *Publisher) List(ctx context.Context, applicationID id.ApplicationID) ([]audit.Entry, error) {
	return p.store.ListByApplication(ctx, applicationID)
}
