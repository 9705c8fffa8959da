package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CaptureRequest is the input to Service.Capture.
type CaptureRequest struct {
	PaymentID      PaymentID
	IdempotencyKey IdempotencyKey
	AmountCents    int64
}

// CaptureResult is the output of Service.Capture. Replayed is true when the
// request matched a previously recorded capture and no new work was done.
type CaptureResult struct {
	Capture  Capture
	Replayed bool
}

// Service orchestrates the capture workflow. It owns no state of its own:
// entities live in the injected stores, time comes from the injected clock,
// and the per-payment lock is the sole concurrency boundary.
type Service struct {
	locks    LockProvider
	clock    Clock
	payments PaymentStore
	captures CaptureStore
	events   EventSink
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the default system clock. Use FixedClock in tests.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithEventSink attaches an optional sink for CaptureRecorded events.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		s.events = sink
	}
}

// WithLogger overrides the default nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService wires a Service from its ports. Defaults: system clock, no event
// sink, nop logger.
func NewService(locks LockProvider, payments PaymentStore, captures CaptureStore, opts ...Option) *Service {
	s := &Service{
		locks:    locks,
		clock:    SystemClock(),
		payments: payments,
		captures: captures,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture executes the capture workflow for one request.
//
// Requests for the same payment are fully serialized by the per-payment lock;
// requests for different payments proceed independently. Every failure is a
// distinct sentinel error (see errors.go) and leaves no partial writes,
// except that a crash between the two persistence steps can leave a capture
// recorded against a payment not yet marked captured — a retry with the same
// key replays that capture instead of double-charging.
func (s *Service) Capture(ctx context.Context, req CaptureRequest) (CaptureResult, error) {
	release, err := s.locks.Acquire(ctx, req.PaymentID.String())
	if err != nil {
		return CaptureResult{}, err
	}
	defer release()

	// Sample the clock inside the lock, never before: serialized requests for
	// the same payment must observe a consistent ordering of "now".
	now := s.clock.Now()

	// Idempotency check precedes all business-rule validation, so a replay
	// succeeds even after the capture window has closed.
	existing, err := s.captures.GetByIdempotencyKey(ctx, req.PaymentID, req.IdempotencyKey)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("idempotency lookup: %w", err)
	}
	if existing != nil {
		return s.replay(*existing, req)
	}

	payment, err := s.payments.Get(ctx, req.PaymentID)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("fetch payment: %w", err)
	}
	if payment == nil {
		return CaptureResult{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, req.PaymentID)
	}

	// Once captured, the payment is closed to every key, novel or not.
	if payment.State == PaymentStateCaptured {
		s.logger.Warn("capture rejected: payment already captured",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("idempotency_key", req.IdempotencyKey.String()))
		return CaptureResult{}, fmt.Errorf("%w: %s", ErrPaymentAlreadyCaptured, req.PaymentID)
	}

	// Pending and failed payments never satisfy CanCapture; from the caller's
	// perspective "capture window not open" covers them too.
	if !payment.CanCapture(now) {
		s.logger.Warn("capture rejected: capture window not open",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("state", string(payment.State)))
		return CaptureResult{}, fmt.Errorf("%w: %s", ErrPaymentExpired, req.PaymentID)
	}

	newCapture, err := NewCapture(req.PaymentID, req.IdempotencyKey, req.AmountCents, now)
	if err != nil {
		return CaptureResult{}, err
	}

	captured, err := payment.Capture(now, req.AmountCents)
	if err != nil {
		// Unreachable if the eligibility checks above hold.
		s.logger.Error("state transition rejected after eligibility checks",
			zap.String("payment_id", req.PaymentID.String()),
			zap.Error(err))
		return CaptureResult{}, err
	}

	// Persist the capture before the payment. A crash between the writes
	// leaves an idempotency-recoverable record; the reverse order would leave
	// a captured payment with no proof of capture.
	if err := s.captures.Save(ctx, newCapture); err != nil {
		if errors.Is(err, ErrDuplicateCapture) {
			s.logger.Error("duplicate capture on save: check-before-save ordering was bypassed",
				zap.String("payment_id", req.PaymentID.String()),
				zap.String("idempotency_key", req.IdempotencyKey.String()))
		}
		return CaptureResult{}, fmt.Errorf("save capture: %w", err)
	}
	if err := s.payments.Save(ctx, captured); err != nil {
		return CaptureResult{}, fmt.Errorf("save payment: %w", err)
	}

	s.publishCaptureRecorded(ctx, newCapture)

	s.logger.Info("payment captured",
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("capture_id", newCapture.ID.String()),
		zap.Int64("amount_cents", req.AmountCents))
	return CaptureResult{Capture: newCapture}, nil
}

// replay resolves a request whose idempotency key already has a stored
// capture: an exact amount match returns the original capture, a mismatch is
// client misuse and never touches the stored record.
func (s *Service) replay(existing Capture, req CaptureRequest) (CaptureResult, error) {
	if existing.AmountCents != req.AmountCents {
		s.logger.Warn("idempotency key reused with different amount",
			zap.String("payment_id", req.PaymentID.String()),
			zap.String("idempotency_key", req.IdempotencyKey.String()),
			zap.Int64("stored_amount_cents", existing.AmountCents),
			zap.Int64("request_amount_cents", req.AmountCents))
		return CaptureResult{}, fmt.Errorf("%w: key %q was recorded with amount_cents=%d, request has amount_cents=%d",
			ErrIdempotencyKeyReuse, req.IdempotencyKey, existing.AmountCents, req.AmountCents)
	}

	s.logger.Debug("capture replayed",
		zap.String("payment_id", req.PaymentID.String()),
		zap.String("capture_id", existing.ID.String()))
	return CaptureResult{Capture: existing, Replayed: true}, nil
}

func (s *Service) publishCaptureRecorded(ctx context.Context, c Capture) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishCaptureRecorded(ctx, newCaptureRecorded(c)); err != nil {
		// Best effort: the capture is already durable, the event is not worth
		// failing it over.
		s.logger.Error("publish capture event",
			zap.String("capture_id", c.ID.String()),
			zap.Error(err))
	}
}

// CreatePayment stores a fresh pending payment and returns it.
func (s *Service) CreatePayment(ctx context.Context) (Payment, error) {
	payment := NewPayment(NewPaymentID())
	if err := s.payments.Save(ctx, payment); err != nil {
		return Payment{}, fmt.Errorf("save payment: %w", err)
	}

	s.logger.Info("payment created", zap.String("payment_id", payment.ID.String()))
	return payment, nil
}

// Authorize opens the capture window on a pending payment, under the same
// lock and clock discipline as Capture.
func (s *Service) Authorize(ctx context.Context, id PaymentID, captureWindow time.Duration) (Payment, error) {
	release, err := s.locks.Acquire(ctx, id.String())
	if err != nil {
		return Payment{}, err
	}
	defer release()

	now := s.clock.Now()

	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		return Payment{}, fmt.Errorf("fetch payment: %w", err)
	}
	if payment == nil {
		return Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}

	authorized, err := payment.Authorize(now, captureWindow)
	if err != nil {
		return Payment{}, err
	}
	if err := s.payments.Save(ctx, authorized); err != nil {
		return Payment{}, fmt.Errorf("save payment: %w", err)
	}

	s.logger.Info("payment authorized",
		zap.String("payment_id", id.String()),
		zap.Time("capture_expires_at", *authorized.CaptureExpiresAt))
	return authorized, nil
}

// GetPayment returns a snapshot of the payment, or ErrPaymentNotFound.
func (s *Service) GetPayment(ctx context.Context, id PaymentID) (Payment, error) {
	payment, err := s.payments.Get(ctx, id)
	if err != nil {
		return Payment{}, fmt.Errorf("fetch payment: %w", err)
	}
	if payment == nil {
		return Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}
	return *payment, nil
}
