package capture

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Top-level JSON fields masked before a body is persisted.
var sensitiveFields = []string{
	"api_key",
	"apiKey",
	"key",
	"token",
	"authorization",
	"password",
	"secret",
}

const redactedPlaceholder = "REDACTED"

// Redact masks sensitive top-level fields in a JSON body before it is
// persisted. Non-JSON bodies pass through unchanged; telemetry rows must
// never leak credentials, but redaction must also never destroy a payload
// it does not understand.
func Redact(body []byte) []byte {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return body
	}

	out := body
	for _, field := range sensitiveFields {
		if !gjson.GetBytes(out, field).Exists() {
			continue
		}
		redacted, err := sjson.SetBytes(out, field, redactedPlaceholder)
		if err != nil {
			continue
		}
		out = redacted
	}
	return out
}
