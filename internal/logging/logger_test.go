package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omarluq/llm-router/internal/config"
	"github.com/omarluq/llm-router/internal/logging"
)

func TestNew(t *testing.T) {
	t.Run("file output writes json with timestamp", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "router.log")

		logger, err := logging.New(config.LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: path,
		})
		require.NoError(t, err)
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())

		logger.Info().Str("provider", "lm-studio").Msg("selected")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		line := string(data)
		assert.Equal(t, "selected", gjson.Get(line, "message").String())
		assert.Equal(t, "lm-studio", gjson.Get(line, "provider").String())
		assert.True(t, gjson.Get(line, "time").Exists())
	})

	t.Run("level filters lower events", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "router.log")

		logger, err := logging.New(config.LoggingConfig{
			Level:  "error",
			Format: "json",
			Output: path,
		})
		require.NoError(t, err)

		logger.Info().Msg("dropped")
		logger.Error().Msg("kept")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "dropped")
		assert.Contains(t, string(data), "kept")
	})

	t.Run("pretty format decorates the message", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "router.log")

		logger, err := logging.New(config.LoggingConfig{
			Level:  "info",
			Format: "pretty",
			Output: path,
		})
		require.NoError(t, err)

		logger.Info().Msg("hello")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "-> hello")
		assert.Contains(t, string(data), "INF")
	})

	t.Run("unwritable output errors", func(t *testing.T) {
		_, err := logging.New(config.LoggingConfig{
			Level:  "info",
			Output: filepath.Join(t.TempDir(), "missing", "dir", "router.log"),
		})
		assert.Error(t, err)
	})
}
