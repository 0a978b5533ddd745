package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"certflow/internal/lifecycle/models"
	"certflow/internal/platform/postgres"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
	txcontext "certflow/pkg/platform/tx"
)

// PostgresStore persists applications in PostgreSQL. The status-specific
// state is flattened into status/notes/listing_visible/state_changed_at/
// reviewer_id columns; check constraints mirror the variant rules.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed application store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	profile, documents, err := marshalBody(app)
	if err != nil {
		return err
	}
	rec := app.Record()
	query := `
		INSERT INTO applications (id, account_id, profile, documents, status, notes, listing_visible,
			state_changed_at, reviewer_id, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(app.ID), uuid.UUID(app.AccountID), profile, documents,
		string(rec.Status), rec.Notes, rec.ListingVisible,
		nullTime(rec.ChangedAt), nullActor(rec.ReviewerID), app.SubmittedAt,
		app.CreatedAt, app.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("application %s: %w", app.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	query := `
		SELECT id, account_id, profile, documents, status, notes, listing_visible,
			state_changed_at, reviewer_id, submitted_at, created_at, updated_at
		FROM applications
		WHERE id = $1
	`
	var (
		rawID, accountID   uuid.UUID
		profile, documents []byte
		status, notes      string
		listingVisible     bool
		changedAt          sql.NullTime
		reviewerID         uuid.NullUUID
		submittedAt        sql.NullTime
		app                models.Application
	)
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(appID)).Scan(
		&rawID, &accountID, &profile, &documents, &status, &notes, &listingVisible,
		&changedAt, &reviewerID, &submittedAt, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}

	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("application %s: %w", appID, err)
	}
	if err := json.Unmarshal(profile, &app.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if err := json.Unmarshal(documents, &app.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	app.ID = id.ApplicationID(rawID)
	app.AccountID = id.AccountID(accountID)
	rec := models.StateRecord{Status: st, Notes: notes, ListingVisible: listingVisible}
	if changedAt.Valid {
		rec.ChangedAt = changedAt.Time
	}
	if reviewerID.Valid {
		rec.ReviewerID = id.ActorID(reviewerID.UUID)
	}
	app.State = rec.State()
	if submittedAt.Valid {
		t := submittedAt.Time
		app.SubmittedAt = &t
	}
	return &app, nil
}

func (s *PostgresStore) Update(ctx context.Context, app *models.Application) error {
	profile, documents, err := marshalBody(app)
	if err != nil {
		return err
	}
	rec := app.Record()
	query := `
		UPDATE applications SET
			profile = $2, documents = $3, status = $4, notes = $5, listing_visible = $6,
			state_changed_at = $7, reviewer_id = $8, submitted_at = $9, updated_at = $10
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(app.ID), profile, documents,
		string(rec.Status), rec.Notes, rec.ListingVisible,
		nullTime(rec.ChangedAt), nullActor(rec.ReviewerID), app.SubmittedAt, app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func marshalBody(app *models.Application) ([]byte, []byte, error) {
	profile, err := json.Marshal(app.Profile)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal profile: %w", err)
	}
	docs := app.Documents
	if docs == nil {
		docs = []models.DocumentRef{}
	}
	documents, err := json.Marshal(docs)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal documents: %w", err)
	}
	return profile, documents, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullActor(a id.ActorID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(a), Valid: !a.IsNil()}
}
