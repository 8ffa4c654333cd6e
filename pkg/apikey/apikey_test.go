package apikey_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/apikey"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	plaintext, digest, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plaintext, apikey.Prefix))
	assert.True(t, apikey.Valid(plaintext))
	assert.Len(t, digest, 64, "hex-encoded sha-256")
	assert.NotContains(t, digest, plaintext)

	t.Run("keys are unique", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			key, _, err := apikey.Generate()
			require.NoError(t, err)
			_, dup := seen[key]
			require.False(t, dup)
			seen[key] = struct{}{}
		}
	})
}

func TestValid(t *testing.T) {
	t.Parallel()

	plaintext, _, err := apikey.Generate()
	require.NoError(t, err)
	assert.True(t, apikey.Valid(plaintext))

	for _, candidate := range []string{"", "tk_", "sk_abcdef", "tk_!!!not-base64!!!", "abcdef"} {
		assert.False(t, apikey.Valid(candidate), "candidate %q", candidate)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	plaintext, digest, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, apikey.Match(plaintext, digest))
	assert.False(t, apikey.Match(plaintext+"x", digest))
	assert.False(t, apikey.Match("tk_other", digest))

	t.Run("hash is deterministic", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, apikey.Hash(plaintext), apikey.Hash(plaintext))
		assert.Equal(t, digest, apikey.Hash(plaintext))
	})
}
