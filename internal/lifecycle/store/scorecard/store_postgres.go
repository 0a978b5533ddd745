package scorecard

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"certflow/internal/lifecycle/models"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
	txcontext "certflow/pkg/platform/tx"
)

// PostgresStore persists scorecards, one row per application.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByApplication(ctx context.Context, appID id.ApplicationID) (*models.Scorecard, error) {
	query := `
		SELECT dimensions, internal_notes, last_internal_review_at, updated_by
		FROM scorecards
		WHERE application_id = $1
	`
	var (
		dimensions []byte
		reviewedAt sql.NullTime
		updatedBy  uuid.NullUUID
	)
	sc := models.NewScorecard(appID)
	err := txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(appID)).
		Scan(&dimensions, &sc.InternalNotes, &reviewedAt, &updatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find scorecard: %w", err)
	}

	stored := map[models.Dimension]models.DimensionStatus{}
	if err := json.Unmarshal(dimensions, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal scorecard dimensions: %w", err)
	}
	for d, v := range stored {
		sc.Values[d] = v
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sc.LastInternalReviewAt = &t
	}
	if updatedBy.Valid {
		sc.UpdatedBy = id.ActorID(updatedBy.UUID)
	}
	return sc, nil
}

func (s *PostgresStore) Save(ctx context.Context, sc *models.Scorecard) error {
	dimensions, err := json.Marshal(sc.Values)
	if err != nil {
		return fmt.Errorf("marshal scorecard dimensions: %w", err)
	}
	query := `
		INSERT INTO scorecards (application_id, dimensions, internal_notes, last_internal_review_at, updated_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (application_id) DO UPDATE SET
			dimensions = EXCLUDED.dimensions,
			internal_notes = EXCLUDED.internal_notes,
			last_internal_review_at = EXCLUDED.last_internal_review_at,
			updated_by = EXCLUDED.updated_by
	`
	updatedBy := uuid.NullUUID{UUID: uuid.UUID(sc.UpdatedBy), Valid: !sc.UpdatedBy.IsNil()}
	_, err = txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(sc.ApplicationID), dimensions, sc.InternalNotes, sc.LastInternalReviewAt, updatedBy)
	if err != nil {
		return fmt.Errorf("save scorecard: %w", err)
	}
	return nil
}
