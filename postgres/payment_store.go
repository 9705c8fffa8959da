package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luminapay/capture"
)

// PaymentStore implements capture.PaymentStore on Postgres.
type PaymentStore struct {
	db *sql.DB
}

// NewPaymentStore wraps db as a PaymentStore.
func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Get(ctx context.Context, id capture.PaymentID) (*capture.Payment, error) {
	const q = `
		SELECT id, state, authorized_at, capture_expires_at, captured_at, captured_amount_cents
		FROM payments
		WHERE id = $1`

	var (
		rawID               string
		state               string
		authorizedAt        sql.NullTime
		captureExpiresAt    sql.NullTime
		capturedAt          sql.NullTime
		capturedAmountCents sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, q, id.String()).Scan(
		&rawID, &state, &authorizedAt, &captureExpiresAt, &capturedAt, &capturedAmountCents,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query payment: %w", err)
	}

	parsedID, err := capture.ParsePaymentID(rawID)
	if err != nil {
		return nil, err
	}

	p := capture.Payment{ID: parsedID, State: capture.PaymentState(state)}
	p.AuthorizedAt = timePtr(authorizedAt)
	p.CaptureExpiresAt = timePtr(captureExpiresAt)
	p.CapturedAt = timePtr(capturedAt)
	if capturedAmountCents.Valid {
		v := capturedAmountCents.Int64
		p.CapturedAmountCents = &v
	}
	return &p, nil
}

func (s *PaymentStore) Save(ctx context.Context, p capture.Payment) error {
	const q = `
		INSERT INTO payments (id, state, authorized_at, capture_expires_at, captured_at, captured_amount_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			state                 = EXCLUDED.state,
			authorized_at         = EXCLUDED.authorized_at,
			capture_expires_at    = EXCLUDED.capture_expires_at,
			captured_at           = EXCLUDED.captured_at,
			captured_amount_cents = EXCLUDED.captured_amount_cents`

	_, err := s.db.ExecContext(ctx, q,
		p.ID.String(),
		string(p.State),
		nullTime(p.AuthorizedAt),
		nullTime(p.CaptureExpiresAt),
		nullTime(p.CapturedAt),
		nullInt64(p.CapturedAmountCents),
	)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

var _ capture.PaymentStore = (*PaymentStore)(nil)
