package secrets

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrSecretNotFound is returned when a backend has no secret at the path
var ErrSecretNotFound = errors.New("secret not found")

// saltKeys are the keys checked, in order, when a secret is stored as a JSON object
var saltKeys = []string{"salt", "value"}

// extractValue returns the usable value of a raw secret payload. JSON objects
// are unwrapped through saltKeys; anything else is used as plain text.
func extractValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return valueFromMap(obj)
		}
	}
	return trimmed
}

// valueFromMap picks the salt out of a decoded secret document
func valueFromMap(data map[string]interface{}) string {
	for _, k := range saltKeys {
		if v, ok := data[k].(string); ok && v != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
