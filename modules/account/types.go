package account

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. The password is stored as a bcrypt hash and
// never leaves this package.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// APIKey identifies a programmatic credential. Only the SHA-256 digest of
// the issued key is kept; the plaintext is returned once at creation.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	Digest     string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}
