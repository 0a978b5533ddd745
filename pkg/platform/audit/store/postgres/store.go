package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "certflow/pkg/domain"
	audit "certflow/pkg/platform/audit"
	txcontext "certflow/pkg/platform/tx"
)

// Store implements audit.Store over the audit_log table. Appends join the
// transaction carried in ctx so the entry commits or rolls back with the
// state change it describes.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one entry. The table has no UPDATE or DELETE grants in
// production; this store never issues either.
func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO audit_log (id, actor_id, application_id, action, description, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.ActorID),
		uuid.UUID(entry.ApplicationID),
		string(entry.Action),
		entry.Description,
		entry.RequestID,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByApplication returns the trail of one application, oldest first.
func (s *Store) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]audit.Entry, error) {
	query := `
		SELECT id, actor_id, application_id, action, description, request_id, created_at
		FROM audit_log
		WHERE application_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry                   audit.Entry
			entryID, actorID, appID uuid.UUID
			action                  string
		)
		if err := rows.Scan(&entryID, &actorID, &appID, &action, &entry.Description, &entry.RequestID, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id.AuditEntryID(entryID)
		entry.ActorID = id.ActorID(actorID)
		entry.ApplicationID = id.ApplicationID(appID)
		entry.Action = audit.Action(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
