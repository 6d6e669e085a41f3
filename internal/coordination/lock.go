// Package coordination keeps ingestion runs from overlapping, across processes via Redis or within one process.
package coordination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed holder can block later runs.
const DefaultLockTTL = 15 * time.Minute

const refreshDivisor = 3

// ErrLockNotHeld is returned when releasing a lock this holder does not own.
var ErrLockNotHeld = errors.New("lock not held")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// DistributedLock is a Redis SET NX lock with an owner token.
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// NewDistributedLock creates a lock on key. A non-positive ttl uses DefaultLockTTL.
func NewDistributedLock(client *redis.Client, key string, ttl time.Duration) *DistributedLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &DistributedLock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

// Unlock releases the lock if this holder owns it.
func (l *DistributedLock) Unlock(ctx context.Context) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Refresh resets the expiry to a full TTL if this holder still owns the lock.
func (l *DistributedLock) Refresh(ctx context.Context) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("refresh lock %s: %w", l.key, err)
	}
	if result == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// RefreshInterval is how often a holder should call Refresh: a third of the TTL.
func (l *DistributedLock) RefreshInterval() time.Duration {
	return l.ttl / refreshDivisor
}

// LocalLock is an in-process lock with the same contract, used when Redis is disabled.
type LocalLock struct {
	mu sync.Mutex
}

// TryLock attempts to acquire the lock without blocking.
func (l *LocalLock) TryLock(context.Context) (bool, error) {
	return l.mu.TryLock(), nil
}

// Unlock releases the lock.
func (l *LocalLock) Unlock(context.Context) error {
	if l.mu.TryLock() {
		l.mu.Unlock()
		return ErrLockNotHeld
	}
	l.mu.Unlock()
	return nil
}
