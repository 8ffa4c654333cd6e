package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is an in-process Store for tests and single-instance
// deployments. Expired windows are replaced lazily on the next hit.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowState
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*windowState),
		now:     time.Now,
	}
}

func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &windowState{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}
