package capture

import "fmt"

// Error codes for the failure conditions of the capture core. Transports map
// these to client/server statuses; the core never collapses them into a
// generic catch-all.
const (
	ErrCodeInvalidAmount          = "invalid_amount"
	ErrCodeInvalidIdempotencyKey  = "invalid_idempotency_key"
	ErrCodeInvalidPaymentID       = "invalid_payment_id"
	ErrCodeInvalidCaptureID       = "invalid_capture_id"
	ErrCodePaymentNotFound        = "payment_not_found"
	ErrCodeInvalidStateTransition = "invalid_state_transition"
	ErrCodePaymentExpired         = "payment_expired"
	ErrCodePaymentAlreadyCaptured = "payment_already_captured"
	ErrCodeIdempotencyKeyReuse    = "idempotency_key_reuse"
	ErrCodeDuplicateCapture       = "duplicate_capture"
	ErrCodeLockTimeout            = "lock_timeout"
)

// DomainError is a named failure condition raised by the capture core.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by code, so errors wrapped with additional context still compare
// against the sentinels below via errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

var (
	// ErrInvalidAmount rejects non-positive capture amounts at construction.
	ErrInvalidAmount = &DomainError{Code: ErrCodeInvalidAmount, Message: "capture amount must be greater than zero"}

	// ErrInvalidIdempotencyKey rejects malformed idempotency keys.
	ErrInvalidIdempotencyKey = &DomainError{Code: ErrCodeInvalidIdempotencyKey, Message: "invalid idempotency key"}

	// ErrInvalidPaymentID rejects strings that do not parse as a payment id.
	ErrInvalidPaymentID = &DomainError{Code: ErrCodeInvalidPaymentID, Message: "invalid payment id"}

	// ErrInvalidCaptureID rejects strings that do not parse as a capture id.
	ErrInvalidCaptureID = &DomainError{Code: ErrCodeInvalidCaptureID, Message: "invalid capture id"}

	// ErrPaymentNotFound signals that the requested payment does not exist.
	ErrPaymentNotFound = &DomainError{Code: ErrCodePaymentNotFound, Message: "payment not found"}

	// ErrInvalidStateTransition signals a transition the payment state machine
	// forbids. The orchestrator's eligibility checks make this unreachable
	// through the public workflow; seeing it means a caller misused the entity.
	ErrInvalidStateTransition = &DomainError{Code: ErrCodeInvalidStateTransition, Message: "invalid payment state transition"}

	// ErrPaymentExpired signals that the capture window is not open. This
	// covers expired authorizations as well as payments that were never
	// authorized or have failed.
	ErrPaymentExpired = &DomainError{Code: ErrCodePaymentExpired, Message: "capture window is not open"}

	// ErrPaymentAlreadyCaptured signals a capture attempt against a payment in
	// the terminal captured state, regardless of idempotency key.
	ErrPaymentAlreadyCaptured = &DomainError{Code: ErrCodePaymentAlreadyCaptured, Message: "payment already captured"}

	// ErrIdempotencyKeyReuse signals client misuse: the same key submitted
	// with a different amount. The stored capture is left untouched.
	ErrIdempotencyKeyReuse = &DomainError{Code: ErrCodeIdempotencyKeyReuse, Message: "idempotency key reused with a different request"}

	// ErrDuplicateCapture signals that a capture store already holds a record
	// for the (payment, key) pair being saved. Distinct from key reuse: this
	// is an invariant violation in the orchestrator's check-before-save
	// ordering, not a client fault.
	ErrDuplicateCapture = &DomainError{Code: ErrCodeDuplicateCapture, Message: "capture already recorded for this payment and key"}

	// ErrLockTimeout signals that a bounded lock acquisition gave up waiting.
	ErrLockTimeout = &DomainError{Code: ErrCodeLockTimeout, Message: "timed out waiting for payment lock"}
)

// ErrorCode extracts the domain error code from err, unwrapping as needed.
// Returns the empty string when err carries no DomainError.
func ErrorCode(err error) string {
	for err != nil {
		if de, ok := err.(*DomainError); ok {
			return de.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
