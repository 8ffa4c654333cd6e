package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trendit-api/trendit/pkg/pg"
)

// PGStore is the Postgres-backed account store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres account store. Panics on a nil pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("account: pgx pool is required")
	}
	return &PGStore{pool: pool}
}

func (s *PGStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1`, email)
}

func (s *PGStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.scanUser(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1`, id)
}

func (s *PGStore) scanUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PGStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (id, user_id, name, digest, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.UserID, key.Name, key.Digest, key.CreatedAt, key.LastUsedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PGStore) ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]APIKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, digest, created_at, last_used_at
		FROM api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.Digest, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PGStore) GetAPIKeyByDigest(ctx context.Context, digest string) (*APIKey, error) {
	var k APIKey
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, digest, created_at, last_used_at
		FROM api_keys WHERE digest = $1`, digest).
		Scan(&k.ID, &k.UserID, &k.Name, &k.Digest, &k.CreatedAt, &k.LastUsedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("get api key: %w", err)
	}
	return &k, nil
}

func (s *PGStore) DeleteAPIKey(ctx context.Context, userID, keyID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (s *PGStore) TouchAPIKey(ctx context.Context, keyID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = now() WHERE id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
