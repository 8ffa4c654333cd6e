package billing

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and single-process development.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewMemoryStore returns an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return cloneSubscription(sub), nil
}

func (s *MemoryStore) GetByProviderCustomerID(ctx context.Context, customerID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.ProviderCustomerID == customerID && customerID != "" {
			return cloneSubscription(sub), nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) Save(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.UserID] = cloneSubscription(sub)
	return nil
}

// cloneSubscription deep-copies a record so callers cannot mutate stored state.
func cloneSubscription(sub *Subscription) *Subscription {
	copied := *sub
	copied.Limits = maps.Clone(sub.Limits)
	return &copied
}

// MemoryEventStore is an in-memory EventStore for tests and development.
type MemoryEventStore struct {
	mu      sync.RWMutex
	byID    map[string]*EventRecord
	records []*EventRecord
}

// NewMemoryEventStore returns an empty in-memory billing event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{byID: make(map[string]*EventRecord)}
}

func (s *MemoryEventStore) Exists(ctx context.Context, providerEventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byID[providerEventID]
	return ok, nil
}

func (s *MemoryEventStore) Record(ctx context.Context, rec *EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.ProviderEventID]; ok {
		return ErrEventAlreadyApplied
	}

	copied := *rec
	s.byID[rec.ProviderEventID] = &copied
	s.records = append(s.records, &copied)
	return nil
}

func (s *MemoryEventStore) LastAppliedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last time.Time
	for _, rec := range s.records {
		if rec.Outcome == OutcomeApplied && rec.UserID != nil && *rec.UserID == userID && rec.OccurredAt.After(last) {
			last = rec.OccurredAt
		}
	}
	return last, nil
}

// Records returns a snapshot of all audit records, oldest first.
func (s *MemoryEventStore) Records() []*EventRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*EventRecord, len(s.records))
	for i, rec := range s.records {
		copied := *rec
		out[i] = &copied
	}
	return out
}
