package enrichment

import "strings"

const (
	// DefaultChunkSize is the maximum chunk length in characters, sized to
	// stay within the enrichment model's input limits.
	DefaultChunkSize = 60000

	// DefaultOverlap is how many characters adjacent chunks share.
	DefaultOverlap = 2000

	// boundaryLookback is how far back from the chunk edge to search for a
	// sentence boundary before accepting a mid-word cut.
	boundaryLookback = 5000
)

// sentence-ending punctuation, in preference order
var boundaryMarks = []string{". ", "? ", "! "}

// ChunkText splits text into overlapping chunks at sentence boundaries.
//
// Texts no longer than chunkSize are returned as a single chunk without any
// boundary search. Longer texts are split into windows of at most chunkSize
// characters; each window is shrunk back to the nearest sentence-ending
// punctuation found within the last boundaryLookback characters, keeping the
// punctuation mark. When no boundary is found the raw edge is used and a
// mid-word cut is accepted. Adjacent chunks overlap by overlap characters.
//
// Precondition: overlap < chunkSize. This is not validated; violating it can
// prevent the window from advancing.
func ChunkText(text string, chunkSize, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		// Ignore boundaries so early the next window would not advance.
		if boundary := findBoundary(text, start, end); boundary != -1 && boundary+1-overlap > start {
			end = boundary + 1 // include the punctuation mark
		}
		chunks = append(chunks, text[start:end])

		start = end - overlap
	}

	return chunks
}

// findBoundary searches backward from end for the nearest sentence-ending
// punctuation within the lookback range, trying each mark in preference
// order. Returns the absolute index of the punctuation mark, or -1.
func findBoundary(text string, start, end int) int {
	searchStart := end - boundaryLookback
	if searchStart < start {
		searchStart = start
	}

	window := text[searchStart:end]
	for _, mark := range boundaryMarks {
		if idx := strings.LastIndex(window, mark); idx != -1 {
			return searchStart + idx
		}
	}
	return -1
}
