package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestRedact(t *testing.T) {
	t.Parallel()

	t.Run("masks every sensitive field present", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"model":"m","api_key":"sk-1","apiKey":"sk-2","token":"t","authorization":"Bearer x","password":"p","secret":"s","key":"k"}`)
		redacted := Redact(body)

		parsed := gjson.ParseBytes(redacted)
		for _, field := range []string{"api_key", "apiKey", "token", "authorization", "password", "secret", "key"} {
			assert.Equal(t, "REDACTED", parsed.Get(field).String(), field)
		}
		assert.Equal(t, "m", parsed.Get("model").String())
	})

	t.Run("leaves bodies without sensitive fields alone", func(t *testing.T) {
		t.Parallel()

		body := []byte(`{"model":"m","messages":[{"role":"user","content":"hi"}]}`)
		assert.JSONEq(t, string(body), string(Redact(body)))
	})

	t.Run("passes non-JSON through unchanged", func(t *testing.T) {
		t.Parallel()

		body := []byte("api_key=sk-123&x=1")
		assert.Equal(t, body, Redact(body))
	})

	t.Run("nil and empty input", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, Redact(nil))
		assert.Empty(t, Redact([]byte{}))
	})

	t.Run("nested sensitive fields are not touched", func(t *testing.T) {
		t.Parallel()

		// Redaction is top-level only, matching what the admin UI displays.
		body := []byte(`{"config":{"api_key":"sk-nested"}}`)
		redacted := Redact(body)
		assert.Equal(t, "sk-nested", gjson.GetBytes(redacted, "config.api_key").String())
	})
}
