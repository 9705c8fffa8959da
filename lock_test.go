package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryLockProvider_SerializesSameResource(t *testing.T) {
	provider := NewMemoryLockProvider()
	const goroutines = 32

	// The counter is unsynchronized on purpose: only the lock protects it.
	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			release, err := provider.Acquire(context.Background(), "payment-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Errorf("expected %d increments, got %d (lock failed to serialize)", goroutines, counter)
	}
}

func TestMemoryLockProvider_DistinctResourcesIndependent(t *testing.T) {
	provider := NewMemoryLockProvider()

	releaseA, err := provider.Acquire(context.Background(), "payment-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer releaseA()

	// Holding payment-a must not block payment-b.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := provider.Acquire(ctx, "payment-b")
	if err != nil {
		t.Fatalf("expected independent acquisition, got %v", err)
	}
	releaseB()
}

func TestMemoryLockProvider_DeadlineSurfacesAsLockTimeout(t *testing.T) {
	provider := NewMemoryLockProvider()

	release, err := provider.Acquire(context.Background(), "payment-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = provider.Acquire(ctx, "payment-1")
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}
}

func TestMemoryLockProvider_CancellationSurfacesAsContextError(t *testing.T) {
	provider := NewMemoryLockProvider()

	release, err := provider.Acquire(context.Background(), "payment-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = provider.Acquire(ctx, "payment-1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryLockProvider_ReleaseIsIdempotent(t *testing.T) {
	provider := NewMemoryLockProvider()

	release, err := provider.Acquire(context.Background(), "payment-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	release()
	release() // second call must be a no-op, not an unlock of the next holder

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	again, err := provider.Acquire(ctx, "payment-1")
	if err != nil {
		t.Fatalf("expected reacquisition to succeed, got %v", err)
	}
	again()
}

func TestNopLockProvider(t *testing.T) {
	provider := NopLockProvider{}

	releaseA, err := provider.Acquire(context.Background(), "payment-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second acquisition of the same resource must not block.
	releaseB, err := provider.Acquire(context.Background(), "payment-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	releaseA()
	releaseB()
}
