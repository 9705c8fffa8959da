package capture

import (
	"fmt"
	"time"
)

// PaymentState is a payment lifecycle state.
type PaymentState string

const (
	PaymentStatePending    PaymentState = "pending"
	PaymentStateAuthorized PaymentState = "authorized"
	PaymentStateCaptured   PaymentState = "captured"
	PaymentStateFailed     PaymentState = "failed"
)

// Payment is the payment lifecycle state machine:
//
//	pending → authorized → captured
//	                     → failed
//
// captured and failed are terminal. Payment is an immutable value: every
// transition method takes a value receiver and returns a new Payment, so
// references held by concurrent readers never change underneath them.
//
// The optional fields are populated exactly according to state: pending has
// all four nil, authorized sets AuthorizedAt and CaptureExpiresAt, captured
// additionally sets CapturedAt and CapturedAmountCents.
type Payment struct {
	ID                  PaymentID
	State               PaymentState
	AuthorizedAt        *time.Time
	CaptureExpiresAt    *time.Time
	CapturedAt          *time.Time
	CapturedAmountCents *int64
}

// NewPayment creates a payment in the pending state.
func NewPayment(id PaymentID) Payment {
	return Payment{ID: id, State: PaymentStatePending}
}

// Authorize opens the capture window. Valid only from pending.
func (p Payment) Authorize(now time.Time, captureWindow time.Duration) (Payment, error) {
	if p.State != PaymentStatePending {
		return Payment{}, fmt.Errorf("%w: cannot authorize payment in state %s", ErrInvalidStateTransition, p.State)
	}

	authorizedAt := now
	expiresAt := now.Add(captureWindow)
	p.State = PaymentStateAuthorized
	p.AuthorizedAt = &authorizedAt
	p.CaptureExpiresAt = &expiresAt
	return p, nil
}

// CanCapture reports whether the payment is capturable at now: authorized,
// with a capture window that has not yet closed. The comparison is strict, so
// a capture at the exact expiry instant is disallowed. Pure query, no side
// effects.
func (p Payment) CanCapture(now time.Time) bool {
	if p.State != PaymentStateAuthorized || p.CaptureExpiresAt == nil {
		return false
	}
	return now.Before(*p.CaptureExpiresAt)
}

// Capture transitions the payment to captured. Valid only from authorized.
//
// Capture does not consult CanCapture: window eligibility is the caller's
// policy check, which lets the orchestrator report expiry as
// ErrPaymentExpired instead of a generic transition error.
func (p Payment) Capture(now time.Time, amountCents int64) (Payment, error) {
	if p.State != PaymentStateAuthorized {
		return Payment{}, fmt.Errorf("%w: cannot capture payment in state %s", ErrInvalidStateTransition, p.State)
	}

	capturedAt := now
	amount := amountCents
	p.State = PaymentStateCaptured
	p.CapturedAt = &capturedAt
	p.CapturedAmountCents = &amount
	return p, nil
}

// Fail transitions the payment to failed. Valid only from authorized.
//
// Note that expiry never calls this: an expired-but-uncaptured payment stays
// authorized forever, and only an explicit capture attempt discovers the
// closed window.
func (p Payment) Fail() (Payment, error) {
	if p.State != PaymentStateAuthorized {
		return Payment{}, fmt.Errorf("%w: cannot fail payment in state %s", ErrInvalidStateTransition, p.State)
	}

	p.State = PaymentStateFailed
	return p, nil
}

// clone returns a Payment that shares no pointers with the receiver. Stores
// use it to keep stored state and caller-held references from aliasing.
func (p Payment) clone() Payment {
	out := p
	if p.AuthorizedAt != nil {
		t := *p.AuthorizedAt
		out.AuthorizedAt = &t
	}
	if p.CaptureExpiresAt != nil {
		t := *p.CaptureExpiresAt
		out.CaptureExpiresAt = &t
	}
	if p.CapturedAt != nil {
		t := *p.CapturedAt
		out.CapturedAt = &t
	}
	if p.CapturedAmountCents != nil {
		v := *p.CapturedAmountCents
		out.CapturedAmountCents = &v
	}
	return out
}
