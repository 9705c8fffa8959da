package capture

import (
	"context"
	"sync"
	"time"
)

// CaptureRecorded is emitted after a capture and its payment transition are
// persisted. Rejected attempts never produce events — existence of an event,
// like existence of a Capture, implies success.
type CaptureRecorded struct {
	CaptureID      string    `json:"capture_id"`
	PaymentID      string    `json:"payment_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	AmountCents    int64     `json:"amount_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

func newCaptureRecorded(c Capture) CaptureRecorded {
	return CaptureRecorded{
		CaptureID:      c.ID.String(),
		PaymentID:      c.PaymentID.String(),
		IdempotencyKey: c.IdempotencyKey.String(),
		AmountCents:    c.AmountCents,
		CreatedAt:      c.CreatedAt,
	}
}

// EventSink receives capture events. It is an optional extension point: the
// Service works without one, and sink failures are logged but never fail the
// capture they describe.
type EventSink interface {
	PublishCaptureRecorded(ctx context.Context, event CaptureRecorded) error
}

// MemoryEventSink records events in memory for tests.
type MemoryEventSink struct {
	mu     sync.Mutex
	events []CaptureRecorded
}

// NewMemoryEventSink creates an empty sink.
func NewMemoryEventSink() *MemoryEventSink {
	return &MemoryEventSink{}
}

func (s *MemoryEventSink) PublishCaptureRecorded(ctx context.Context, event CaptureRecorded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of the recorded events.
func (s *MemoryEventSink) Events() []CaptureRecorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CaptureRecorded, len(s.events))
	copy(out, s.events)
	return out
}

var _ EventSink = (*MemoryEventSink)(nil)
