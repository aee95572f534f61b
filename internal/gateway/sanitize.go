package gateway

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// modelPrefixes are provider prefixes some clients prepend to model names.
var modelPrefixes = []string{"apple/", "openai/", "ollama/"}

// SanitizeModelName strips provider prefixes from the model field of a raw
// request body. Handles formats like "apple/apple.local" -> "apple.local".
func SanitizeModelName(body []byte) []byte {
	model := gjson.GetBytes(body, "model")
	if !model.Exists() || model.Type != gjson.String {
		return body
	}

	for _, prefix := range modelPrefixes {
		if strings.HasPrefix(model.String(), prefix) {
			patched, err := sjson.SetBytes(body, "model", strings.TrimPrefix(model.String(), prefix))
			if err != nil {
				return body
			}
			return patched
		}
	}
	return body
}
