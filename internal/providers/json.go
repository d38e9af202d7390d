package providers

import "strings"

// ExtractJSON strips markdown code fences from a model response so the
// remainder can be passed to json.Unmarshal. Models frequently wrap JSON in
// ```json blocks even when asked not to.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if start := strings.Index(raw, "```json"); start >= 0 {
		rest := raw[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if start := strings.Index(raw, "```"); start >= 0 {
		rest := raw[start+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return raw
}
