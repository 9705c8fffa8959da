package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MemoryLockProvider implements LockProvider with in-process locks, one per
// resource id.
//
// Acquisition is two-phase: a short global mutex guards the registry during
// lookup/creation, then the per-resource lock is acquired outside it. The
// global section is O(1), so lock creation never serializes unrelated
// resources. Per-resource locks are 1-buffered channels rather than mutexes
// so acquisition can select against ctx.
//
// Locks are never evicted once created; the registry grows with the number of
// distinct resource ids. Acceptable for a single-process deployment — a
// multi-process one should use a distributed provider such as redislock.
type MemoryLockProvider struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewMemoryLockProvider creates an empty lock registry.
func NewMemoryLockProvider() *MemoryLockProvider {
	return &MemoryLockProvider{locks: make(map[string]chan struct{})}
}

// Acquire blocks until the lock for resourceID is held or ctx is done.
func (p *MemoryLockProvider) Acquire(ctx context.Context, resourceID string) (func(), error) {
	p.mu.Lock()
	lock, ok := p.locks[resourceID]
	if !ok {
		lock = make(chan struct{}, 1)
		p.locks[resourceID] = lock
	}
	p.mu.Unlock()

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, resourceID)
		}
		return nil, ctx.Err()
	}

	var once sync.Once
	release := func() {
		once.Do(func() { <-lock })
	}
	return release, nil
}

// NopLockProvider performs no locking. It exists for single-threaded tests
// where lock overhead is noise; never use it where race handling is under
// test.
type NopLockProvider struct{}

func (NopLockProvider) Acquire(ctx context.Context, resourceID string) (func(), error) {
	return func() {}, nil
}

var (
	_ LockProvider = (*MemoryLockProvider)(nil)
	_ LockProvider = NopLockProvider{}
)
