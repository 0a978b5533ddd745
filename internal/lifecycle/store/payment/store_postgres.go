package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"certflow/internal/lifecycle/models"
	"certflow/internal/platform/postgres"
	id "certflow/pkg/domain"
	"certflow/pkg/platform/sentinel"
	txcontext "certflow/pkg/platform/tx"
)

const liveIndex = "payment_requests_one_live"

// PostgresStore persists payment requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed payment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `
	SELECT id, application_id, account_id, status, amount, currency, invoice_number,
		requested_at, paid_at, cancelled_at, updated_at
	FROM payment_requests
`

func (s *PostgresStore) Create(ctx context.Context, p *models.PaymentRequest) error {
	query := `
		INSERT INTO payment_requests (id, application_id, account_id, status, amount, currency,
			invoice_number, requested_at, paid_at, cancelled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.ApplicationID), uuid.UUID(p.AccountID), string(p.Status),
		p.Amount, p.Currency, p.InvoiceNumber, p.RequestedAt, p.PaidAt, p.CancelledAt, p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return fmt.Errorf("payment for application %s: %w", p.ApplicationID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*models.PaymentRequest, error) {
	p, err := scan(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx, selectColumns+`WHERE id = $1`, uuid.UUID(paymentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) FindLiveByApplication(ctx context.Context, appID id.ApplicationID) (*models.PaymentRequest, error) {
	p, err := scan(txcontext.Resolve(ctx, s.db).QueryRowContext(ctx,
		selectColumns+`WHERE application_id = $1 AND status IN ('pending', 'processing')`, uuid.UUID(appID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.ApplicationID) ([]*models.PaymentRequest, error) {
	rows, err := txcontext.Resolve(ctx, s.db).QueryContext(ctx,
		selectColumns+`WHERE application_id = $1 ORDER BY requested_at ASC`, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("query payment requests: %w", err)
	}
	defer rows.Close()

	var out []*models.PaymentRequest
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment requests: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.PaymentRequest) error {
	query := `
		UPDATE payment_requests SET status = $2, paid_at = $3, cancelled_at = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := txcontext.Resolve(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), string(p.Status), p.PaidAt, p.CancelledAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err, liveIndex) {
			return fmt.Errorf("live payment for application %s: %w", p.ApplicationID, sentinel.ErrConflict)
		}
		return fmt.Errorf("update payment request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.PaymentRequest, error) {
	var (
		p                        models.PaymentRequest
		paymentID, appID, acctID uuid.UUID
		status                   string
		paidAt, cancelledAt      sql.NullTime
	)
	err := row.Scan(&paymentID, &appID, &acctID, &status, &p.Amount, &p.Currency, &p.InvoiceNumber,
		&p.RequestedAt, &paidAt, &cancelledAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan payment request: %w", err)
	}
	st, err := models.ParsePaymentStatus(status)
	if err != nil {
		return nil, fmt.Errorf("payment %s: %w", paymentID, err)
	}
	p.ID = id.PaymentID(paymentID)
	p.ApplicationID = id.ApplicationID(appID)
	p.AccountID = id.AccountID(acctID)
	p.Status = st
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		p.CancelledAt = &t
	}
	return &p, nil
}
