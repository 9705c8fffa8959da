// Package redislock implements capture.LockProvider on Redis, for
// deployments where capture requests for one payment can land on different
// processes.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/luminapay/capture"
)

const (
	defaultTTL          = 30 * time.Second
	defaultPollInterval = 25 * time.Millisecond
	defaultKeyPrefix    = "capture:lock:"
	releaseTimeout      = 5 * time.Second
)

// releaseScript deletes the lock key only while it still holds our token, so
// a lock that expired and was re-acquired elsewhere is never released by the
// old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Provider acquires one SET NX key per resource id. The key TTL bounds how
// long a crashed holder can wedge a resource; live holders must finish their
// critical section inside the TTL.
type Provider struct {
	client       *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
	keyPrefix    string
	logger       *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithTTL sets the lock key TTL. Default 30s.
func WithTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.ttl = ttl
	}
}

// WithPollInterval sets how often a blocked acquirer retries. Default 25ms.
func WithPollInterval(interval time.Duration) Option {
	return func(p *Provider) {
		p.pollInterval = interval
	}
}

// WithKeyPrefix sets the Redis key prefix. Default "capture:lock:".
func WithKeyPrefix(prefix string) Option {
	return func(p *Provider) {
		p.keyPrefix = prefix
	}
}

// WithLogger overrides the default nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider wraps a go-redis client as a LockProvider.
func NewProvider(client *redis.Client, opts ...Option) *Provider {
	p := &Provider{
		client:       client,
		ttl:          defaultTTL,
		pollInterval: defaultPollInterval,
		keyPrefix:    defaultKeyPrefix,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire polls SET NX until the lock is held or ctx is done. A ctx deadline
// surfaces as capture.ErrLockTimeout, matching the LockProvider contract.
func (p *Provider) Acquire(ctx context.Context, resourceID string) (func(), error) {
	key := p.keyPrefix + resourceID
	token := uuid.NewString()

	for {
		ok, err := p.client.SetNX(ctx, key, token, p.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", resourceID, err)
		}
		if ok {
			break
		}

		select {
		case <-time.After(p.pollInterval):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", capture.ErrLockTimeout, resourceID)
			}
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			// Release must run even when the caller's ctx is already done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, p.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				p.logger.Error("release lock", zap.String("resource_id", resourceID), zap.Error(err))
			}
		})
	}
	return release, nil
}

var _ capture.LockProvider = (*Provider)(nil)
