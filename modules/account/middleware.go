package account

import (
	"context"
	"net/http"
	"strings"

	"github.com/trendit-api/trendit/core"
)

type contextKey struct{}

var userContextKey = contextKey{}

// UserFromContext returns the authenticated user placed by the auth
// middleware, or nil when the request is unauthenticated.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userContextKey).(*User)
	return u
}

// ContextWithUser attaches a user to the context, for tests and internal
// wiring.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// RequireJWT authenticates requests with an Authorization bearer token
// issued by Login. Dashboard endpoints sit behind this middleware.
func (s *Service) RequireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			core.Error(w, r, core.ErrUnauthorized)
			return
		}

		user, err := s.AuthenticateToken(r.Context(), token)
		if err != nil {
			core.Error(w, r, core.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireAPIKey authenticates requests with an API key, either as a bearer
// token or in the X-API-Key header. Metered data endpoints sit behind this
// middleware.
func (s *Service) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r)
		if key == "" {
			key = r.Header.Get("X-API-Key")
		}
		if key == "" {
			core.Error(w, r, core.ErrUnauthorized)
			return
		}

		user, err := s.AuthenticateAPIKey(r.Context(), key)
		if err != nil {
			core.Error(w, r, core.ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}
