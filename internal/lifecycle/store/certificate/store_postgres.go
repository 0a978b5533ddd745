package certificate

import (
	"context"
	"database/sql"
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

// PostgresStore persists certificates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `
	SELECT id, number, application_id, version, status, issued_at, expires_at,
		verification_hash, verification_url, revocation_reason, revoked_at, updated_at
	FROM certificates
`

func (s *PostgresStore) Create(ctx context.Context, cert *models.Certificate) error {
	reason, revokedAt := revocationColumns(cert)
	query := `
		INSERT INTO certificates (id, number, application_id, version, status, issued_at, expires_at,
			verification_hash, verification_url, revocation_reason, revoked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(cert.ID), cert.Number, uuid.UUID(cert.ApplicationID), cert.Version, string(cert.Status),
		cert.IssuedAt, cert.ExpiresAt, cert.Verification.Hash, cert.Verification.URL,
		reason, revokedAt, cert.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("certificate for application %s: %w", cert.ApplicationID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	return s.findOne(ctx, selectColumns+`WHERE id = $1`, uuid.UUID(certID))
}

func (s *PostgresStore) FindByApplication(ctx context.Context, appID id.ApplicationID) (*models.Certificate, error) {
	return s.findOne(ctx, selectColumns+`WHERE application_id = $1`, uuid.UUID(appID))
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*models.Certificate, error) {
	return s.findOne(ctx, selectColumns+`WHERE verification_hash = $1`, hash)
}

func (s *PostgresStore) Update(ctx context.Context, cert *models.Certificate) error {
	reason, revokedAt := revocationColumns(cert)
	query := `
		UPDATE certificates SET
			version = $2, status = $3, expires_at = $4, verification_hash = $5, verification_url = $6,
			revocation_reason = $7, revoked_at = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(cert.ID), cert.Version, string(cert.Status), cert.ExpiresAt,
		cert.Verification.Hash, cert.Verification.URL, reason, revokedAt, cert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]*models.Certificate, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx,
		selectColumns+`WHERE status = 'active' AND expires_at <= $1 ORDER BY expires_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("query due certificates: %w", err)
	}
	defer rows.Close()

	var due []*models.Certificate
	for rows.Next() {
		cert, err := scan(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, cert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due certificates: %w", err)
	}
	return due, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Certificate, error) {
	cert, err := scan(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return cert, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Certificate, error) {
	var (
		cert          models.Certificate
		certID, appID uuid.UUID
		status        string
		reason        sql.NullString
		revokedAt     sql.NullTime
	)
	err := row.Scan(&certID, &cert.Number, &appID, &cert.Version, &status, &cert.IssuedAt, &cert.ExpiresAt,
		&cert.Verification.Hash, &cert.Verification.URL, &reason, &revokedAt, &cert.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	st, err := models.ParseCertificateStatus(status)
	if err != nil {
		return nil, fmt.Errorf("certificate %s: %w", certID, err)
	}
	cert.ID = id.CertificateID(certID)
	cert.ApplicationID = id.ApplicationID(appID)
	cert.Status = st
	if revokedAt.Valid {
		cert.Revocation = &models.Revocation{Reason: reason.String, RevokedAt: revokedAt.Time}
	}
	return &cert, nil
}

func revocationColumns(cert *models.Certificate) (sql.NullString, sql.NullTime) {
	if cert.Revocation == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: cert.Revocation.Reason, Valid: true},
		sql.NullTime{Time: cert.Revocation.RevokedAt, Valid: true}
}
