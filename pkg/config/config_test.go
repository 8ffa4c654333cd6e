package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/config"
)

type testConfig struct {
	Host    string        `env:"TEST_CFG_HOST" envDefault:"localhost"`
	Port    int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	Timeout time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"5s"`
	Token   string        `env:"TEST_CFG_TOKEN"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults apply", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Empty(t, cfg.Token)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TEST_CFG_HOST", "api.internal")
		t.Setenv("TEST_CFG_PORT", "9000")
		t.Setenv("TEST_CFG_TIMEOUT", "30s")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		assert.Equal(t, "api.internal", cfg.Host)
		assert.Equal(t, 9000, cfg.Port)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		require.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("unparseable value reported", func(t *testing.T) {
		t.Setenv("TEST_CFG_PORT", "not-a-number")

		var cfg testConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("required field enforced", func(t *testing.T) {
		type strictConfig struct {
			Secret string `env:"TEST_CFG_MISSING_SECRET,required"`
		}

		var cfg strictConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)
	})
}
