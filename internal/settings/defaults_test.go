package settings

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	t.Run("returns a copy", func(t *testing.T) {
		t.Parallel()

		first := Defaults()
		first["server.port"] = 1

		second := Defaults()
		assert.Equal(t, 8000, second["server.port"])
	})

	t.Run("known values", func(t *testing.T) {
		t.Parallel()

		d := Defaults()
		assert.Equal(t, "0.0.0.0", d["server.host"])
		assert.Equal(t, 120000, d["server.timeout"])
		assert.Equal(t, "info", d["logging.level"])
		assert.Equal(t, true, d["logging.logRequests"])
		assert.Equal(t, true, d["logging.logResponses"])
		assert.Equal(t, false, d["system.autoStart"])
		assert.Equal(t, true, d["system.minimizeToTray"])
		assert.Equal(t, true, d["system.checkUpdates"])
	})
}

func TestRequiresRestart(t *testing.T) {
	t.Parallel()

	assert.True(t, RequiresRestart("server.port"))
	assert.True(t, RequiresRestart("server.host"))
	assert.True(t, RequiresRestart("logging.level"))

	assert.False(t, RequiresRestart("server.timeout"))
	assert.False(t, RequiresRestart("logging.logRequests"))
	assert.False(t, RequiresRestart("system.autoStart"))
	assert.False(t, RequiresRestart("made.up.key"))
	assert.False(t, RequiresRestart(""))
}

func TestCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "server", Category("server.port"))
	assert.Equal(t, "logging", Category("logging.level"))
	assert.Equal(t, "system", Category("system.autoStart"))
	assert.Equal(t, "provider", Category("provider.timeout"))

	// Keys outside the known categories classify as unknown.
	assert.Equal(t, CategoryUnknown, Category("custom.key"))
	assert.Equal(t, CategoryUnknown, Category("active_provider"))
	assert.Equal(t, CategoryUnknown, Category(""))
	assert.Equal(t, CategoryUnknown, Category(".leading.dot"))
}

func TestCategoryProperties(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("category is the first dotted segment or unknown", prop.ForAll(
		func(key string) bool {
			got := Category(key)
			segment, _, _ := strings.Cut(key, ".")
			if _, known := knownCategories[segment]; known {
				return got == segment
			}
			return got == CategoryUnknown
		},
		gen.AlphaString(),
	))

	properties.Property("restart-required keys always resolve to a known category", prop.ForAll(
		func(key string) bool {
			if !RequiresRestart(key) {
				return true
			}
			return Category(key) != CategoryUnknown
		},
		gen.OneConstOf("server.port", "server.host", "logging.level", "anything.else"),
	))

	properties.TestingRun(t)
}
