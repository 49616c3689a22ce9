package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrProcessorTxConflict = errors.New("processor transaction already bound to another payment")
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

type PaymentRecord struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PlanID        uuid.UUID
	Duration      string
	AmountCents   int
	Currency      string
	ProcessorTxID *string
	Status        string
	IsTest        bool
	StartsAt      *time.Time
	EndsAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

func (r *PaymentRepo) CreatePending(ctx context.Context, userID, planID uuid.UUID, duration string, amountCents int, currency string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID == uuid.Nil || planID == uuid.Nil || amountCents <= 0 {
		return PaymentRecord{}, fmt.Errorf("invalid payment payload")
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO payments (id, user_id, plan_id, duration, amount_cents, currency, status, is_test, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', FALSE, NOW(), NOW())
RETURNING `+paymentColumns+`
`, uuid.New(), userID, planID, duration, amountCents, currency)

	rec, err := scanPaymentRow(row)
	if err != nil {
		return PaymentRecord{}, fmt.Errorf("create pending payment: %w", err)
	}
	return rec, nil
}

func (r *PaymentRepo) FindByID(ctx context.Context, paymentID uuid.UUID) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
LIMIT 1
`, paymentID)

	rec, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("find payment by id: %w", err)
	}
	return rec, nil
}

// LockForActivationTx row-locks the payment so that concurrent activation
// attempts serialize on the idempotence check.
func (r *PaymentRepo) LockForActivationTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID) (PaymentRecord, error) {
	if tx == nil {
		return PaymentRecord{}, fmt.Errorf("transaction is required")
	}

	row := tx.QueryRow(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
FOR UPDATE
`, paymentID)

	rec, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("lock payment for activation: %w", err)
	}
	return rec, nil
}

func (r *PaymentRepo) MarkCompletedTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, processorTxID string, isTest bool, startsAt, endsAt time.Time) (PaymentRecord, error) {
	if tx == nil {
		return PaymentRecord{}, fmt.Errorf("transaction is required")
	}
	processorTxID = strings.TrimSpace(processorTxID)

	row := tx.QueryRow(ctx, `
UPDATE payments
SET
	status = 'completed',
	processor_tx_id = $2,
	is_test = $3,
	starts_at = COALESCE(starts_at, $4::timestamptz),
	ends_at = COALESCE(ends_at, $5::timestamptz),
	updated_at = NOW()
WHERE id = $1
RETURNING `+paymentColumns+`
`, paymentID, nullIfEmpty(processorTxID), isTest, startsAt.UTC(), endsAt.UTC())

	rec, err := scanPaymentRow(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PaymentRecord{}, ErrProcessorTxConflict
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("mark payment completed: %w", err)
	}
	return rec, nil
}

func (r *PaymentRepo) MarkFailedTx(ctx context.Context, tx pgx.Tx, paymentID uuid.UUID, processorTxID string) (PaymentRecord, error) {
	if tx == nil {
		return PaymentRecord{}, fmt.Errorf("transaction is required")
	}

	row := tx.QueryRow(ctx, `
UPDATE payments
SET
	status = 'failed',
	processor_tx_id = COALESCE($2, processor_tx_id),
	updated_at = NOW()
WHERE id = $1
RETURNING `+paymentColumns+`
`, paymentID, nullIfEmpty(strings.TrimSpace(processorTxID)))

	rec, err := scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("mark payment failed: %w", err)
	}
	return rec, nil
}

func (r *PaymentRepo) ListRecent(ctx context.Context, limit int) ([]PaymentRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+paymentColumns+`
FROM payments
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent payments: %w", err)
	}
	defer rows.Close()

	var out []PaymentRecord
	for rows.Next() {
		rec, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FailStalePending sweeps abandoned initiations. A late processor callback
// for a swept payment is rejected by the terminal-status check.
func (r *PaymentRepo) FailStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payments
SET status = 'failed', updated_at = NOW()
WHERE status = 'pending'
  AND created_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("fail stale pending payments: %w", err)
	}
	return tag.RowsAffected(), nil
}

const paymentColumns = `
	id,
	user_id,
	plan_id,
	duration,
	amount_cents,
	currency,
	processor_tx_id,
	status,
	is_test,
	starts_at,
	ends_at,
	created_at,
	updated_at`

func scanPaymentRow(row pgx.Row) (PaymentRecord, error) {
	var rec PaymentRecord
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.PlanID,
		&rec.Duration,
		&rec.AmountCents,
		&rec.Currency,
		&rec.ProcessorTxID,
		&rec.Status,
		&rec.IsTest,
		&rec.StartsAt,
		&rec.EndsAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return PaymentRecord{}, err
	}
	return rec, nil
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
