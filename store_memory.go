package capture

import (
	"context"
	"fmt"
)

// MemoryPaymentStore is the in-memory reference PaymentStore.
//
// It stores and returns defensive copies, so callers never hold references
// that alias stored state — mutating a returned Payment without calling Save
// has no effect on the store, mimicking detached database entities.
//
// Not internally synchronized: the orchestrator's per-payment lock is the
// only protection, matching the PaymentStore contract.
type MemoryPaymentStore struct {
	payments map[PaymentID]Payment
}

// NewMemoryPaymentStore creates an empty payment store.
func NewMemoryPaymentStore() *MemoryPaymentStore {
	return &MemoryPaymentStore{payments: make(map[PaymentID]Payment)}
}

func (s *MemoryPaymentStore) Get(ctx context.Context, id PaymentID) (*Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	out := p.clone()
	return &out, nil
}

func (s *MemoryPaymentStore) Save(ctx context.Context, payment Payment) error {
	s.payments[payment.ID] = payment.clone()
	return nil
}

type captureKey struct {
	paymentID PaymentID
	key       IdempotencyKey
}

// MemoryCaptureStore is the in-memory reference CaptureStore, keyed by
// (payment id, idempotency key) for O(1) lookup. Same copy and thread-safety
// rules as MemoryPaymentStore; Capture has no pointer fields, so value
// assignment is already a deep copy.
type MemoryCaptureStore struct {
	captures map[captureKey]Capture
}

// NewMemoryCaptureStore creates an empty capture store.
func NewMemoryCaptureStore() *MemoryCaptureStore {
	return &MemoryCaptureStore{captures: make(map[captureKey]Capture)}
}

func (s *MemoryCaptureStore) GetByIdempotencyKey(ctx context.Context, paymentID PaymentID, key IdempotencyKey) (*Capture, error) {
	c, ok := s.captures[captureKey{paymentID: paymentID, key: key}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryCaptureStore) Save(ctx context.Context, c Capture) error {
	k := captureKey{paymentID: c.PaymentID, key: c.IdempotencyKey}
	if _, exists := s.captures[k]; exists {
		return fmt.Errorf("%w: payment %s, key %s", ErrDuplicateCapture, c.PaymentID, c.IdempotencyKey)
	}
	s.captures[k] = c
	return nil
}

var (
	_ PaymentStore = (*MemoryPaymentStore)(nil)
	_ CaptureStore = (*MemoryCaptureStore)(nil)
)
