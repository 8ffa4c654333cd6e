// Package account implements user registration, login, and API key
// management. Authentication comes in two shapes: short-lived JWTs for the
// dashboard and long-lived API keys for programmatic access.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/trendit-api/trendit/pkg/apikey"
	"github.com/trendit-api/trendit/pkg/jwt"
)

// maxAPIKeysPerUser caps key sprawl per account.
const maxAPIKeysPerUser = 10

const minPasswordLength = 8

// Service implements account operations on top of a Store.
type Service struct {
	store  Store
	tokens *jwt.Service
	log    *slog.Logger
	now    func() time.Time
}

// ServiceOption configures optional service behavior.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger. Defaults to slog.Default.
func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithServiceClock overrides the time source, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the account service. Panics when store or tokens is
// nil so wiring mistakes surface at startup.
func NewService(store Store, tokens *jwt.Service, opts ...ServiceOption) *Service {
	if store == nil {
		panic("account: Store is required")
	}
	if tokens == nil {
		panic("account: jwt.Service is required")
	}

	s := &Service{
		store:  store,
		tokens: tokens,
		log:    slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and returns a signed access token. Lookup
// failures and password mismatches collapse into one error so responses do
// not reveal which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID.String())
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}
	return token, user, nil
}

// CreatedKey pairs the stored key record with its one-time plaintext.
type CreatedKey struct {
	APIKey
	Plaintext string `json:"key"`
}

// CreateKey issues a new API key for the user. The plaintext appears only
// in the returned value.
func (s *Service) CreateKey(ctx context.Context, userID uuid.UUID, name string) (*CreatedKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrKeyNameRequired
	}

	existing, err := s.store.ListAPIKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= maxAPIKeysPerUser {
		return nil, ErrTooManyKeys
	}

	plaintext, digest, err := apikey.Generate()
	if err != nil {
		return nil, err
	}

	key := &APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Digest:    digest,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "api key created", "user_id", userID, "key_id", key.ID)
	return &CreatedKey{APIKey: *key, Plaintext: plaintext}, nil
}

// ListKeys returns the user's API keys, digests excluded by the JSON shape.
func (s *Service) ListKeys(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	return s.store.ListAPIKeys(ctx, userID)
}

// RevokeKey deletes one of the user's API keys.
func (s *Service) RevokeKey(ctx context.Context, userID, keyID uuid.UUID) error {
	if err := s.store.DeleteAPIKey(ctx, userID, keyID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "api key revoked", "user_id", userID, "key_id", keyID)
	return nil
}

// AuthenticateToken resolves a JWT bearer token to its user.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, jwt.ErrInvalidToken
	}
	return s.store.GetUserByID(ctx, userID)
}

// AuthenticateAPIKey resolves a plaintext API key to its user and records
// the use. A failed last-used update is logged but does not reject the
// request.
func (s *Service) AuthenticateAPIKey(ctx context.Context, plaintext string) (*User, error) {
	if !apikey.Valid(plaintext) {
		return nil, ErrInvalidAPIKey
	}

	key, err := s.store.GetAPIKeyByDigest(ctx, apikey.Hash(plaintext))
	if err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, key.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.store.TouchAPIKey(ctx, key.ID); err != nil {
		s.log.WarnContext(ctx, "failed to update api key last-used timestamp",
			"key_id", key.ID, "error", err)
	}
	return user, nil
}
