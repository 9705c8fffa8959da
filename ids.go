package capture

import (
	"fmt"

	"github.com/google/uuid"
)

// PaymentID uniquely identifies a payment. It is a UUIDv4-backed value type:
// comparable, hashable by value, and usable directly as a map key.
type PaymentID uuid.UUID

// NewPaymentID generates a fresh random payment id.
func NewPaymentID() PaymentID {
	return PaymentID(uuid.New())
}

// ParsePaymentID validates and parses an externally supplied payment id.
func ParsePaymentID(s string) (PaymentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PaymentID{}, fmt.Errorf("%w: %q", ErrInvalidPaymentID, s)
	}
	return PaymentID(u), nil
}

func (id PaymentID) String() string {
	return uuid.UUID(id).String()
}

// CaptureID uniquely identifies a capture record. Same semantics as PaymentID.
type CaptureID uuid.UUID

// NewCaptureID generates a fresh random capture id.
func NewCaptureID() CaptureID {
	return CaptureID(uuid.New())
}

// ParseCaptureID validates and parses an externally supplied capture id.
func ParseCaptureID(s string) (CaptureID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CaptureID{}, fmt.Errorf("%w: %q", ErrInvalidCaptureID, s)
	}
	return CaptureID(u), nil
}

func (id CaptureID) String() string {
	return uuid.UUID(id).String()
}
