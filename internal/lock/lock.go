// Package lock guards order submission so only one attempt per checkout
// session is in flight across all API replicas.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Locker acquires short-lived, owner-tagged keys.
type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

const keyPrefix = "submit_lock:"

type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, keyPrefix+key, owner, ttl).Result()
}

// releaseScript deletes the key only if it still carries the caller's owner
// tag, in one round trip so an expired lock taken over by someone else is
// never removed.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release deletes the key only while owner still holds it.
func (r *Redis) Release(ctx context.Context, key, owner string) error {
	err := releaseScript.Run(ctx, r.client, []string{keyPrefix + key}, owner).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

type held struct {
	owner     string
	expiresAt time.Time
}

// Memory is the single-process Locker.
type Memory struct {
	mu    sync.Mutex
	locks map[string]held
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{locks: make(map[string]held), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if h, ok := m.locks[key]; ok && now.Before(h.expiresAt) {
		return false, nil
	}
	m.locks[key] = held{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *Memory) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.locks[key]; ok && h.owner == owner {
		delete(m.locks, key)
	}
	return nil
}
