package capture

import (
	"fmt"
	"time"
)

// Capture records money successfully taken against an authorized payment.
//
// Only successful captures exist: a stored Capture for a (payment, key) pair
// is definitional proof that the capture happened. Rejected attempts are never
// recorded. A Capture is immutable once constructed and is never deleted.
type Capture struct {
	ID             CaptureID
	PaymentID      PaymentID
	IdempotencyKey IdempotencyKey
	AmountCents    int64
	CreatedAt      time.Time
}

// NewCapture builds a validated Capture with a fresh id. It is the only
// sanctioned constructor outside of reconstruction from storage.
func NewCapture(paymentID PaymentID, key IdempotencyKey, amountCents int64, createdAt time.Time) (Capture, error) {
	if amountCents <= 0 {
		return Capture{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, amountCents)
	}

	return Capture{
		ID:             NewCaptureID(),
		PaymentID:      paymentID,
		IdempotencyKey: key,
		AmountCents:    amountCents,
		CreatedAt:      createdAt,
	}, nil
}
