// Package apikey generates and verifies API keys.
//
// Keys are random 32-byte values presented once at creation as
// "tk_<base64url>". Only the SHA-256 digest of the full key string is
// stored, so a database leak does not expose usable credentials.
package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Prefix identifies API keys on the wire and makes them greppable in
// configuration and secret scanners.
const Prefix = "tk_"

const secretBytes = 32

// Generate returns a new plaintext key and its storable digest. The
// plaintext is shown to the caller exactly once and never persisted.
func Generate() (plaintext, digest string, err error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}

	plaintext = Prefix + base64.RawURLEncoding.EncodeToString(buf)
	return plaintext, Hash(plaintext), nil
}

// Hash returns the hex-encoded SHA-256 digest of a plaintext key.
func Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether a candidate string is shaped like one of our keys.
// Cheap pre-check before hitting the store on every request.
func Valid(candidate string) bool {
	if !strings.HasPrefix(candidate, Prefix) {
		return false
	}
	secret := strings.TrimPrefix(candidate, Prefix)
	if secret == "" {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(secret)
	return err == nil
}

// Match compares a plaintext candidate against a stored digest in constant
// time.
func Match(candidate, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(candidate)), []byte(digest)) == 1
}
