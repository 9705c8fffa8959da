package capture

import (
	"context"
	"time"
)

// PaymentStore persists payments.
//
// Contract:
//   - Get returns (nil, nil) when the payment does not exist; errors are
//     reserved for infrastructure failures.
//   - Save upserts by id. The id never changes after creation.
//   - Returned entities must not alias stored state (copy-on-read).
//   - Implementations need not be thread-safe: the orchestrator serializes
//     access per payment through the LockProvider. Concurrent access outside
//     the lock is out of contract.
type PaymentStore interface {
	Get(ctx context.Context, id PaymentID) (*Payment, error)
	Save(ctx context.Context, payment Payment) error
}

// CaptureStore persists successful captures, keyed by (payment, key).
//
// Contract:
//   - GetByIdempotencyKey returns (nil, nil) on a miss.
//   - Save fails with ErrDuplicateCapture when the (payment, key) pair already
//     has a record. The orchestrator always checks idempotency first inside
//     the lock, so reaching that error is an invariant violation rather than
//     client misuse.
//   - Same aliasing and thread-safety rules as PaymentStore.
type CaptureStore interface {
	GetByIdempotencyKey(ctx context.Context, paymentID PaymentID, key IdempotencyKey) (*Capture, error)
	Save(ctx context.Context, c Capture) error
}

// Clock abstracts wall-clock access so the capture window can be tested
// deterministically. Now must return UTC; local timestamps are a contract
// violation.
type Clock interface {
	Now() time.Time
}

// LockProvider hands out exclusive locks scoped to a resource id.
//
// Contract:
//   - Acquire blocks until the lock for resourceID is held or ctx is done.
//     A ctx deadline surfaces as ErrLockTimeout, cancellation as ctx.Err();
//     a background ctx gives the unconditionally blocking base contract.
//   - Locks on distinct resource ids must be acquirable in parallel with no
//     global serialization.
//   - release is safe to defer and must run on every exit path of the
//     critical section, including error paths.
type LockProvider interface {
	Acquire(ctx context.Context, resourceID string) (release func(), err error)
}
