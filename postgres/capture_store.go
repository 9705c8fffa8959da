package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/luminapay/capture"
)

// pq error code for unique constraint violations.
const uniqueViolation = "23505"

// CaptureStore implements capture.CaptureStore on Postgres. The unique
// constraint on (payment_id, idempotency_key) backs the duplicate-capture
// invariant at the storage layer.
type CaptureStore struct {
	db *sql.DB
}

// NewCaptureStore wraps db as a CaptureStore.
func NewCaptureStore(db *sql.DB) *CaptureStore {
	return &CaptureStore{db: db}
}

func (s *CaptureStore) GetByIdempotencyKey(ctx context.Context, paymentID capture.PaymentID, key capture.IdempotencyKey) (*capture.Capture, error) {
	const q = `
		SELECT id, payment_id, idempotency_key, amount_cents, created_at
		FROM captures
		WHERE payment_id = $1 AND idempotency_key = $2`

	var (
		rawID        string
		rawPaymentID string
		rawKey       string
		amountCents  int64
		createdAt    sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q, paymentID.String(), key.String()).Scan(
		&rawID, &rawPaymentID, &rawKey, &amountCents, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query capture: %w", err)
	}

	return reconstructCapture(rawID, rawPaymentID, rawKey, amountCents, createdAt)
}

func (s *CaptureStore) Save(ctx context.Context, c capture.Capture) error {
	const q = `
		INSERT INTO captures (id, payment_id, idempotency_key, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, q,
		c.ID.String(),
		c.PaymentID.String(),
		c.IdempotencyKey.String(),
		c.AmountCents,
		c.CreatedAt.UTC(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: payment %s, key %s", capture.ErrDuplicateCapture, c.PaymentID, c.IdempotencyKey)
	}
	if err != nil {
		return fmt.Errorf("insert capture: %w", err)
	}
	return nil
}

// reconstructCapture rebuilds a domain Capture from its stored columns,
// re-validating identifiers and key through the domain constructors.
func reconstructCapture(rawID, rawPaymentID, rawKey string, amountCents int64, createdAt sql.NullTime) (*capture.Capture, error) {
	id, err := capture.ParseCaptureID(rawID)
	if err != nil {
		return nil, err
	}
	paymentID, err := capture.ParsePaymentID(rawPaymentID)
	if err != nil {
		return nil, err
	}
	key, err := capture.NewIdempotencyKey(rawKey)
	if err != nil {
		return nil, err
	}

	c := capture.Capture{
		ID:             id,
		PaymentID:      paymentID,
		IdempotencyKey: key,
		AmountCents:    amountCents,
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time.UTC()
	}
	return &c, nil
}

var _ capture.CaptureStore = (*CaptureStore)(nil)
