package account

import (
	"context"

	"github.com/google/uuid"
)

// Store persists users and API keys.
//
// CreateUser must fail with ErrEmailTaken when the email already exists.
// TouchAPIKey updates the last-used timestamp and may be called on every
// authenticated request, so implementations should keep it cheap.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	CreateAPIKey(ctx context.Context, key *APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]APIKey, error)
	GetAPIKeyByDigest(ctx context.Context, digest string) (*APIKey, error)
	DeleteAPIKey(ctx context.Context, userID, keyID uuid.UUID) error
	TouchAPIKey(ctx context.Context, keyID uuid.UUID) error
}
