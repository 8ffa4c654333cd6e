package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/modules/account"
	"github.com/trendit-api/trendit/pkg/jwt"
)

func newService(t *testing.T) *account.Service {
	t.Helper()

	tokens, err := jwt.New("test-signing-key-at-least-32-bytes!", "trendit", 30*time.Minute)
	require.NoError(t, err)
	return account.NewService(account.NewMemoryStore(), tokens)
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		user, err := svc.Register(ctx, "Alice@Example.com", "s3cretpass")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
		assert.NotEqual(t, "s3cretpass", user.PasswordHash)
		assert.NotEmpty(t, user.PasswordHash)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Register(ctx, "bob@example.com", "s3cretpass")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "bob@example.com", "otherpass1")
		require.ErrorIs(t, err, account.ErrEmailTaken)
	})

	t.Run("invalid input rejected", func(t *testing.T) {
		t.Parallel()
		svc := newService(t)

		_, err := svc.Register(ctx, "not-an-email", "s3cretpass")
		require.ErrorIs(t, err, account.ErrInvalidEmail)

		_, err = svc.Register(ctx, "carol@example.com", "short")
		require.ErrorIs(t, err, account.ErrWeakPassword)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newService(t)
	registered, err := svc.Register(ctx, "dave@example.com", "s3cretpass")
	require.NoError(t, err)

	t.Run("valid credentials yield a usable token", func(t *testing.T) {
		t.Parallel()

		token, user, err := svc.Login(ctx, "dave@example.com", "s3cretpass")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)

		authed, err := svc.AuthenticateToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, registered.ID, authed.ID)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		t.Parallel()

		_, _, err := svc.Login(ctx, "dave@example.com", "wrongpass1")
		require.ErrorIs(t, err, account.ErrInvalidCredentials)

		_, _, err = svc.Login(ctx, "nobody@example.com", "s3cretpass")
		require.ErrorIs(t, err, account.ErrInvalidCredentials)
	})
}

func TestAPIKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newService(t)
	user, err := svc.Register(ctx, "erin@example.com", "s3cretpass")
	require.NoError(t, err)

	t.Run("create, authenticate, revoke", func(t *testing.T) {
		created, err := svc.CreateKey(ctx, user.ID, "ci pipeline")
		require.NoError(t, err)
		assert.NotEmpty(t, created.Plaintext)
		assert.Nil(t, created.LastUsedAt)

		authed, err := svc.AuthenticateAPIKey(ctx, created.Plaintext)
		require.NoError(t, err)
		assert.Equal(t, user.ID, authed.ID)

		keys, err := svc.ListKeys(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.NotNil(t, keys[0].LastUsedAt, "use updates the last-used timestamp")

		require.NoError(t, svc.RevokeKey(ctx, user.ID, created.ID))

		_, err = svc.AuthenticateAPIKey(ctx, created.Plaintext)
		require.ErrorIs(t, err, account.ErrInvalidAPIKey)
	})

	t.Run("malformed and unknown keys rejected", func(t *testing.T) {
		t.Parallel()

		_, err := svc.AuthenticateAPIKey(ctx, "not-a-key")
		require.ErrorIs(t, err, account.ErrInvalidAPIKey)

		_, err = svc.AuthenticateAPIKey(ctx, "tk_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		require.ErrorIs(t, err, account.ErrInvalidAPIKey)
	})

	t.Run("name required", func(t *testing.T) {
		t.Parallel()

		_, err := svc.CreateKey(ctx, user.ID, "  ")
		require.ErrorIs(t, err, account.ErrKeyNameRequired)
	})

	t.Run("revoking another user's key fails", func(t *testing.T) {
		other, err := svc.Register(ctx, "frank@example.com", "s3cretpass")
		require.NoError(t, err)

		created, err := svc.CreateKey(ctx, user.ID, "mine")
		require.NoError(t, err)

		err = svc.RevokeKey(ctx, other.ID, created.ID)
		require.ErrorIs(t, err, account.ErrAPIKeyNotFound)
	})
}

func TestAuthenticateToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newService(t)

	t.Run("garbage token rejected", func(t *testing.T) {
		t.Parallel()
		_, err := svc.AuthenticateToken(ctx, "garbage")
		require.Error(t, err)
	})

	t.Run("token for deleted user rejected", func(t *testing.T) {
		t.Parallel()

		tokens, err := jwt.New("test-signing-key-at-least-32-bytes!", "trendit", 30*time.Minute)
		require.NoError(t, err)

		token, err := tokens.Issue(uuid.NewString())
		require.NoError(t, err)

		_, err = svc.AuthenticateToken(ctx, token)
		require.ErrorIs(t, err, account.ErrUserNotFound)
	})
}
