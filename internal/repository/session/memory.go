package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/domain"
)

type entry struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

type memoryRepo struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory keeps sessions in process. Values are stored encoded so callers
// never share a *checkout.Session with the store.
func NewMemory(ttl time.Duration) Repository {
	return &memoryRepo{entries: make(map[string]entry), ttl: ttl, now: time.Now}
}

func (r *memoryRepo) Get(_ context.Context, id string) (*checkout.Session, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok || r.expired(e) {
		return nil, domain.ErrNotFound
	}
	var s checkout.Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *memoryRepo) Save(_ context.Context, s *checkout.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.entries[s.ID]
	if ok && r.expired(cur) {
		ok = false
	}
	switch {
	case !ok && s.Version != 0:
		return domain.ErrNotFound
	case ok && cur.version != s.Version:
		return domain.ErrConflict
	}

	next := *s
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	e := entry{data: data, version: next.Version}
	if r.ttl > 0 {
		e.expiresAt = r.now().Add(r.ttl)
	}
	r.entries[s.ID] = e
	s.Version = next.Version
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || r.expired(e) {
		delete(r.entries, id)
		return domain.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *memoryRepo) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt)
}
