package settings

import "strings"

// ActiveProviderKey is the setting that designates the active provider.
// Being a setting rather than a provider column keeps "registered"
// decoupled from "selected".
const ActiveProviderKey = "active_provider"

// Setting categories, derived from the first dotted path segment of a key.
const (
	CategoryServer   = "server"
	CategoryLogging  = "logging"
	CategorySystem   = "system"
	CategoryProvider = "provider"
	CategoryUnknown  = "unknown"
)

var knownCategories = map[string]struct{}{
	CategoryServer:   {},
	CategoryLogging:  {},
	CategorySystem:   {},
	CategoryProvider: {},
}

// defaults are the compiled-in values for every recognised key. A stored
// override wins; deleting an override reverts to these.
var defaults = map[string]any{
	"server.port":           8000,
	"server.host":           "0.0.0.0",
	"server.timeout":        120000,
	"logging.level":         "info",
	"logging.logRequests":   true,
	"logging.logResponses":  true,
	"system.autoStart":      false,
	"system.minimizeToTray": true,
	"system.checkUpdates":   true,
}

// restartRequired lists the keys whose effect only takes hold after a
// process restart. The resolver reports the flag; the operator restarts.
var restartRequired = map[string]struct{}{
	"server.port":   {},
	"server.host":   {},
	"logging.level": {},
}

// Defaults returns a copy of the compiled-in defaults.
func Defaults() map[string]any {
	out := make(map[string]any, len(defaults))
	for key, value := range defaults {
		out[key] = value
	}
	return out
}

// RequiresRestart reports whether key only takes effect after restart.
// Pure function over a static set; independent of store state.
func RequiresRestart(key string) bool {
	_, ok := restartRequired[key]
	return ok
}

// Category derives the category of key from its first dotted path segment.
// Keys with an unrecognised prefix land in the literal "unknown" category so
// listing and filtering never fail on unexpected keys.
func Category(key string) string {
	prefix := key
	if i := strings.IndexByte(key, '.'); i >= 0 {
		prefix = key[:i]
	}
	if _, ok := knownCategories[prefix]; ok {
		return prefix
	}
	return CategoryUnknown
}
