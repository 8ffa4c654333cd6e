package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
	keys  map[uuid.UUID]APIKey
}

// NewMemoryStore returns an empty in-memory account store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]User),
		keys:  make(map[uuid.UUID]APIKey),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := u
	return &user, nil
}

func (s *MemoryStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = *key
	return nil
}

func (s *MemoryStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []APIKey
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetAPIKeyByDigest(ctx context.Context, digest string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.Digest == digest {
			key := k
			return &key, nil
		}
	}
	return nil, ErrAPIKeyNotFound
}

func (s *MemoryStore) DeleteAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[keyID]
	if !ok || k.UserID != userID {
		return ErrAPIKeyNotFound
	}
	delete(s.keys, keyID)
	return nil
}

func (s *MemoryStore) TouchAPIKey(ctx context.Context, keyID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[keyID]
	if !ok {
		return ErrAPIKeyNotFound
	}
	now := time.Now().UTC()
	k.LastUsedAt = &now
	s.keys[keyID] = k
	return nil
}
