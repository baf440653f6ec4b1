package enrichment

import "strings"

// stripCodeFences removes markdown code fence wrapping from a model response.
//
// The prompt forbids fenced output, but models are not contractually
// reliable, so the first line is dropped when the response opens with a
// fence marker, and a trailing fence is removed if present. Unfenced input
// is returned unchanged, which makes the operation idempotent.
func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	if idx := strings.IndexByte(text, '\n'); idx != -1 {
		text = text[idx+1:]
	} else {
		text = text[3:]
	}

	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(text[:len(text)-3])
	}

	return text
}
