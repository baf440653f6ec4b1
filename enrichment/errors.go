package enrichment

import "errors"

var (
	// ErrChatModelRequired is returned when a chat model is not provided.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrEmptyTranscript indicates a transcript with no text and no usable
	// segment fallback. Not retried: retrying cannot produce different
	// local data.
	ErrEmptyTranscript = errors.New("transcript has no text")

	// ErrMalformedResponse indicates a model response that failed JSON
	// parsing or schema validation. Recovered locally by retrying.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrRetriesExhausted indicates that every attempt for a single call
	// produced a failure. Fatal to the enclosing enrichment run; the last
	// underlying error is attached for diagnosis.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
