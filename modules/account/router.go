package account

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/trendit-api/trendit/core"
)

// Router mounts the account endpoints. The login limiter throttles
// credential guessing; pass nil to disable it in tests.
func Router(svc *Service, loginLimiter func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/auth/register", svc.handleRegister)

	login := http.HandlerFunc(svc.handleLogin)
	if loginLimiter != nil {
		r.Method(http.MethodPost, "/auth/login", loginLimiter(login))
	} else {
		r.Method(http.MethodPost, "/auth/login", login)
	}

	r.Group(func(r chi.Router) {
		r.Use(svc.RequireJWT)
		r.Post("/keys", svc.handleCreateKey)
		r.Get("/keys", svc.handleListKeys)
		r.Delete("/keys/{keyID}", svc.handleRevokeKey)
	})

	return r
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := s.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			core.Error(w, r, core.ErrConflict)
		case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword):
			core.Error(w, r, core.ErrUnprocessableEntity)
		default:
			core.Error(w, r, err)
		}
		return
	}

	core.JSON(w, http.StatusCreated, user)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	token, user, err := s.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			core.Error(w, r, core.ErrUnauthorized)
		} else {
			core.Error(w, r, err)
		}
		return
	}

	core.JSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"user":         user,
	})
}

type createKeyRequest struct {
	Name string `json:"name"`
}

func (s *Service) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req createKeyRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	created, err := s.CreateKey(r.Context(), user.ID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrKeyNameRequired):
			core.Error(w, r, core.ErrUnprocessableEntity)
		case errors.Is(err, ErrTooManyKeys):
			core.Error(w, r, core.ErrConflict)
		default:
			core.Error(w, r, err)
		}
		return
	}

	core.JSON(w, http.StatusCreated, created)
}

func (s *Service) handleListKeys(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	keys, err := s.ListKeys(r.Context(), user.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, http.StatusOK, keys)
}

func (s *Service) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		core.Error(w, r, core.ErrBadRequest)
		return
	}

	if err := s.RevokeKey(r.Context(), user.ID, keyID); err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			core.Error(w, r, core.ErrNotFound)
		} else {
			core.Error(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
