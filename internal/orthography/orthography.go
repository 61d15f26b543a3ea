// Package orthography rewrites German text between regional spelling
// conventions. Swiss Standard German does not use the letter ß; learners
// with the Swiss preference get "ss" on all outbound content.
package orthography

import (
	"encoding/json"
	"strings"

	"github.com/lernpfad/backend/internal/store"
)

// SwissString rewrites one string to the Swiss convention.
func SwissString(s string) string {
	return strings.ReplaceAll(s, "ß", "ss")
}

// SwissJSON recursively rewrites every string value inside an arbitrary
// JSON document, keys included, to the Swiss convention. Content that
// fails to parse is returned unchanged: the transform is cosmetic and
// must never break a response.
func SwissJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}

	out, err := json.Marshal(swissValue(v))
	if err != nil {
		return raw
	}
	return out
}

// ForVariant returns the identity transform for the standard German
// preference and the Swiss rewrite otherwise.
func ForVariant(variant string) func(json.RawMessage) json.RawMessage {
	if variant == store.SpellingSwiss {
		return SwissJSON
	}
	return func(raw json.RawMessage) json.RawMessage { return raw }
}

func swissValue(v any) any {
	switch t := v.(type) {
	case string:
		return SwissString(t)
	case []any:
		for i, e := range t {
			t[i] = swissValue(e)
		}
		return t
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[SwissString(k)] = swissValue(e)
		}
		return out
	default:
		return v
	}
}
