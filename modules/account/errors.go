package account

import "errors"

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrAPIKeyNotFound     = errors.New("api key not found")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrKeyNameRequired    = errors.New("api key name is required")
	ErrTooManyKeys        = errors.New("api key limit reached")
)
