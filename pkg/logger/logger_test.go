package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendit-api/trendit/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output with service attr", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.Config{Level: "info", Format: logger.FormatJSON},
			logger.WithOutput(&buf),
			logger.WithService("trendit-api"),
		)

		log.Info("server started", "port", 8080)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "server started", record["msg"])
		assert.Equal(t, "trendit-api", record["service"])
		assert.Equal(t, float64(8080), record["port"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.Config{Level: "warn", Format: logger.FormatJSON},
			logger.WithOutput(&buf),
		)

		log.Info("dropped")
		assert.Empty(t, buf.String())

		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.Config{Level: "debug", Format: logger.FormatText},
			logger.WithOutput(&buf),
		)

		log.Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("unknown level defaults to info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.Config{Level: "bogus", Format: logger.FormatJSON},
			logger.WithOutput(&buf),
		)

		assert.False(t, log.Enabled(t.Context(), slog.LevelDebug))
		assert.True(t, log.Enabled(t.Context(), slog.LevelInfo))
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			logger.New(logger.Config{Format: "xml"})
		})
	})
}
