package jwt

import "errors"

var (
	ErrMissingSigningKey       = errors.New("signing key is required")
	ErrInvalidTTL              = errors.New("token ttl must be positive")
	ErrMissingSubject          = errors.New("token subject is required")
	ErrInvalidToken            = errors.New("invalid token")
	ErrInvalidSignature        = errors.New("invalid token signature")
	ErrExpiredToken            = errors.New("token has expired")
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
)
