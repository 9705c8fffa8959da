package capture

import (
	"errors"
	"testing"
)

func mustKey(t *testing.T, raw string) IdempotencyKey {
	t.Helper()
	key, err := NewIdempotencyKey(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return key
}

func TestNewCapture(t *testing.T) {
	paymentID := NewPaymentID()
	key := mustKey(t, "order-1")

	c, err := NewCapture(paymentID, key, 1000, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.PaymentID != paymentID {
		t.Errorf("expected payment id %s, got %s", paymentID, c.PaymentID)
	}
	if c.IdempotencyKey != key {
		t.Errorf("expected key %s, got %s", key, c.IdempotencyKey)
	}
	if c.AmountCents != 1000 {
		t.Errorf("expected amount 1000, got %d", c.AmountCents)
	}
	if !c.CreatedAt.Equal(testNow) {
		t.Errorf("expected created_at %v, got %v", testNow, c.CreatedAt)
	}
}

func TestNewCapture_FreshID(t *testing.T) {
	paymentID := NewPaymentID()
	key := mustKey(t, "order-1")

	a, err := NewCapture(paymentID, key, 1000, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewCapture(paymentID, key, 1000, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == b.ID {
		t.Error("expected each capture to receive a fresh id")
	}
}

func TestNewCapture_InvalidAmount(t *testing.T) {
	paymentID := NewPaymentID()
	key := mustKey(t, "order-1")

	for _, amount := range []int64{0, -1, -1000} {
		_, err := NewCapture(paymentID, key, amount, testNow)
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}
