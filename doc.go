// Package capture implements idempotent, concurrency-safe payment capture.
//
// Given an authorized payment and a client-supplied idempotency key, the
// Service guarantees that a capture happens at most once per (payment, key)
// pair, enforces a time-bounded capture window, and safely replays duplicate
// requests.
//
// # How It Works
//
// 1. Capture() acquires an exclusive lock scoped to the payment id
// 2. The clock is sampled inside the lock, so serialized requests agree on "now"
// 3. The idempotency store is checked before any business validation: an exact
// duplicate replays the stored capture, a same-key/different-amount request is
// rejected as key reuse
// 4. Business rules run in order: already-captured beats expired, expired
// covers every payment that never reached (or left) the authorized state
// 5. The new capture is persisted before the payment transition, so a crash
// between the two writes is recoverable through the idempotency check
//
// # Ports and Adapters
//
// The Service depends only on small interfaces: PaymentStore, CaptureStore,
// Clock, LockProvider, and an optional EventSink. In-memory reference
// implementations live in this package and back the test suite; production
// adapters live in the postgres, redislock, and kafkasink packages and are
// selected via dependency injection.
//
// Stores are not required to be thread-safe. The per-payment lock is the sole
// concurrency boundary: requests for the same payment are fully serialized,
// requests for different payments proceed in parallel.
package capture
