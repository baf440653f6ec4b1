// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/ponderosa/ai"
	"github.com/poiesic/ponderosa/core"
)

// DefaultMaxRetries is the number of retries after the initial attempt, so
// the default budget is three calls per extraction or merge.
const DefaultMaxRetries = 2

// Enricher extracts structured insights from transcripts using a chat model.
//
// A transcript is chunked up front, each chunk is extracted with one model
// call, and multi-chunk results are consolidated with a final merge call.
// All calls are sequential and stateless with respect to each other: no
// conversation history is carried between chunks.
type Enricher struct {
	model      ai.ChatModel
	maxRetries int
	chunkSize  int
	overlap    int
	chunk      func(text string) []string
	logger     *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithMaxRetries sets the number of retries after the initial attempt.
// The total attempt budget per call is maxRetries + 1.
func WithMaxRetries(retries int) Option {
	return func(e *Enricher) {
		if retries < 0 {
			retries = 0
		}
		e.maxRetries = retries
	}
}

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(e *Enricher) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent chunks in characters.
// Must be smaller than the chunk size.
func WithOverlap(overlap int) Option {
	return func(e *Enricher) {
		if overlap >= 0 {
			e.overlap = overlap
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "enricher")
	}
}

// NewEnricher creates an enricher backed by the given chat model.
func NewEnricher(model ai.ChatModel, opts ...Option) (*Enricher, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}

	e := &Enricher{
		model:      model,
		maxRetries: DefaultMaxRetries,
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
		logger:     slog.Default().With("component", "enricher"),
	}
	for _, opt := range opts {
		opt(e)
	}

	// Chunk boundaries are computed once, up front, sequentially; the chunk
	// function is a field so tests can inject a stub chunker.
	if e.chunk == nil {
		e.chunk = func(text string) []string {
			return ChunkText(text, e.chunkSize, e.overlap)
		}
	}

	return e, nil
}

// EnrichFile loads a transcript JSON file and enriches it.
func (e *Enricher) EnrichFile(ctx context.Context, path string) (*core.EnrichmentResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	var transcript core.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("parsing transcript %s: %w", path, err)
	}

	return e.EnrichTranscript(ctx, &transcript)
}

// EnrichTranscript extracts structured insights from a transcript.
//
// The transcript itself is never mutated. The caller receives either a
// complete, validated result or an error; there is no partial enrichment:
// a failure in any single chunk is fatal to the whole run.
func (e *Enricher) EnrichTranscript(ctx context.Context, transcript *core.Transcript) (*core.EnrichmentResult, error) {
	text := transcriptText(transcript)
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	chunks := e.chunk(text)

	if len(chunks) == 1 {
		e.logger.Info("enriching single chunk", "chars", len(text))
		return e.extract(ctx, chunks[0])
	}

	e.logger.Info("enriching chunked transcript",
		"chunks", len(chunks),
		"chunkSize", e.chunkSize,
		"overlap", e.overlap)

	results := make([]*core.EnrichmentResult, 0, len(chunks))
	for i, chunk := range chunks {
		e.logger.Info("processing chunk", "chunk", i+1, "total", len(chunks), "chars", len(chunk))
		result, err := e.extract(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, result)
	}

	e.logger.Info("merging chunk results", "chunks", len(results))
	merged, err := e.merge(ctx, results)
	if err != nil {
		return nil, err
	}

	e.logger.Info("enrichment complete",
		"chunks", len(chunks),
		"themes", len(merged.Themes),
		"learnings", len(merged.Learnings),
		"strategies", len(merged.Strategies))

	return merged, nil
}

// extract enriches a single chunk of transcript text.
func (e *Enricher) extract(ctx context.Context, text string) (*core.EnrichmentResult, error) {
	return e.callModel(ctx, extractionSystemPrompt, extractionPrompt+text)
}

// merge consolidates multiple per-chunk results into one deduplicated result.
// It reuses the same call primitive, and therefore the same retry budget, as
// extraction.
func (e *Enricher) merge(ctx context.Context, results []*core.EnrichmentResult) (*core.EnrichmentResult, error) {
	serialized, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing chunk results: %w", err)
	}
	return e.callModel(ctx, mergeSystemPrompt, mergePrompt+string(serialized))
}

// callModel invokes the chat model and parses the response, retrying on
// failure up to the configured budget. The prompt is identical across
// attempts: no corrective feedback is injected. Transport errors consume
// the same budget as malformed responses.
func (e *Enricher) callModel(ctx context.Context, system, prompt string) (*core.EnrichmentResult, error) {
	attempts := e.maxRetries + 1
	messages := []ai.Message{ai.UserMessage(prompt)}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		response, err := e.model.Complete(ctx, system, messages)
		if err != nil {
			lastErr = err
			e.logger.Warn("model call failed", "attempt", attempt, "maxAttempts", attempts, "err", err)
			continue
		}

		result, err := parseResult(response)
		if err != nil {
			lastErr = err
			e.logger.Warn("model response failed validation",
				"attempt", attempt,
				"maxAttempts", attempts,
				"err", err)
			continue
		}

		return result, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempts, lastErr)
}

// parseResult strips markdown fences, parses the response as JSON, and
// validates it against the enrichment schema. Scores outside [0,1] fail
// validation; they are never clamped.
func parseResult(response string) (*core.EnrichmentResult, error) {
	raw := strings.TrimSpace(response)
	raw = stripCodeFences(raw)

	var result core.EnrichmentResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if err := core.ValidateEnrichmentResult(&result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return &result, nil
}

// transcriptText loads the text to enrich, preferring the top-level field
// and falling back to segment texts joined by a single space.
func transcriptText(transcript *core.Transcript) string {
	if transcript == nil {
		return ""
	}
	if transcript.Text != "" {
		return transcript.Text
	}

	parts := make([]string, 0, len(transcript.Segments))
	for _, segment := range transcript.Segments {
		parts = append(parts, segment.Text)
	}
	return strings.Join(parts, " ")
}
