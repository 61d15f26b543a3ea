package llm

import "strings"

// StripFences removes markdown code-fence markup around a model response.
// Models sometimes wrap JSON output in ```json ... ``` even when asked not
// to; callers strip before parsing. Content without fences passes through
// unchanged.
func StripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}

	s = strings.TrimPrefix(s, "```")
	// Drop the optional language tag on the opening fence.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}
