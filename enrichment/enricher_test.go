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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ponderosa/ai"
	"github.com/poiesic/ponderosa/ai/mock"
	"github.com/poiesic/ponderosa/core"
)

const validResponse = `{
	"episode_title": "Scaling Engineering Teams",
	"summary": "A discussion of how engineering organizations grow.",
	"themes": [
		{"name": "Team Topology", "description": "How teams are shaped.", "keywords": ["teams", "structure"], "relevance_score": 0.9}
	],
	"learnings": [
		{"name": "Hire Slowly", "description": "Deliberate hiring pays off.", "keywords": ["hiring"], "relevance_score": 0.8}
	],
	"strategies": [
		{"name": "Platform Teams", "description": "Invest in internal platforms.", "keywords": ["platform"], "relevance_score": 0.7}
	]
}`

func TestNewEnricherRequiresChatModel(t *testing.T) {
	enricher, err := NewEnricher(nil)
	assert.Nil(t, enricher)
	assert.ErrorIs(t, err, ErrChatModelRequired)
}

func TestEnrichTranscriptSingleChunk(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueResponse(validResponse)

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	result, err := enricher.EnrichTranscript(context.Background(), &core.Transcript{
		Text: "A short transcript about engineering teams.",
	})
	require.NoError(t, err)

	// One extraction call, no merge.
	assert.Equal(t, 1, chat.CallCount())
	assert.Equal(t, "Scaling Engineering Teams", result.EpisodeTitle)
	require.Len(t, result.Themes, 1)
	assert.Equal(t, "Team Topology", result.Themes[0].Name)

	require.Len(t, chat.Calls, 1)
	assert.Equal(t, extractionSystemPrompt, chat.Calls[0].System)
	require.Len(t, chat.Calls[0].Messages, 1)
	assert.True(t, strings.HasSuffix(chat.Calls[0].Messages[0].Content,
		"A short transcript about engineering teams."))
}

func TestEnrichTranscriptEmptyTranscript(t *testing.T) {
	chat := mock.NewMockChatModel()
	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	assert.Equal(t, 0, chat.CallCount())
}

func TestEnrichTranscriptSegmentFallback(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueResponse(validResponse)

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{
		Segments: []core.Segment{
			{Start: 0, End: 1.5, Text: "Hello world."},
			{Start: 1.5, End: 3, Text: "Goodbye."},
		},
	})
	require.NoError(t, err)

	require.Len(t, chat.Calls, 1)
	assert.True(t, strings.HasSuffix(chat.Calls[0].Messages[0].Content, "Hello world. Goodbye."))
}

func TestEnrichTranscriptFencedResponse(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueResponse("```json\n" + validResponse + "\n```")

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	result, err := enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.CallCount())
	assert.Equal(t, "Scaling Engineering Teams", result.EpisodeTitle)
}

func TestEnrichTranscriptRetriesMalformedResponse(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueResponse("this is not json")
	chat.QueueResponse(validResponse)

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	result, err := enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	require.NoError(t, err)
	assert.Equal(t, 2, chat.CallCount())
	assert.Equal(t, "Scaling Engineering Teams", result.EpisodeTitle)
}

func TestEnrichTranscriptRetryPromptIsIdentical(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueResponse("not json")
	chat.QueueResponse(validResponse)

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	require.NoError(t, err)

	// No corrective feedback: every attempt carries the same messages.
	require.Len(t, chat.Calls, 2)
	assert.Equal(t, chat.Calls[0].System, chat.Calls[1].System)
	assert.Equal(t, chat.Calls[0].Messages, chat.Calls[1].Messages)
}

func TestEnrichTranscriptRetriesExhausted(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(ctx context.Context, system string, messages []ai.Message) (string, error) {
		return "never json", nil
	}

	enricher, err := NewEnricher(chat, WithMaxRetries(2))
	require.NoError(t, err)

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	// maxRetries 2 means three total attempts.
	assert.Equal(t, 3, chat.CallCount())
}

func TestEnrichTranscriptTransportErrorsConsumeBudget(t *testing.T) {
	transportErr := errors.New("connection refused")
	chat := mock.NewMockChatModel()
	chat.QueueError(transportErr)
	chat.QueueError(transportErr)
	chat.QueueError(transportErr)

	enricher, err := NewEnricher(chat, WithMaxRetries(2))
	require.NoError(t, err)

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, 3, chat.CallCount())
}

func TestEnrichTranscriptMixedFailuresConsumeOneBudget(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueError(errors.New("timeout"))
	chat.QueueResponse("not json")
	chat.QueueResponse(validResponse)

	enricher, err := NewEnricher(chat, WithMaxRetries(2))
	require.NoError(t, err)

	result, err := enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	require.NoError(t, err)
	assert.Equal(t, 3, chat.CallCount())
	assert.Equal(t, "Scaling Engineering Teams", result.EpisodeTitle)
}

func TestEnrichTranscriptRejectsOutOfRangeScore(t *testing.T) {
	bad := strings.Replace(validResponse, `"relevance_score": 0.9`, `"relevance_score": 1.5`, 1)

	chat := mock.NewMockChatModel()
	chat.CompleteFunc = func(ctx context.Context, system string, messages []ai.Message) (string, error) {
		return bad, nil
	}

	enricher, err := NewEnricher(chat, WithMaxRetries(0))
	require.NoError(t, err)

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "some text"})
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorIs(t, err, core.ErrScoreOutOfRange)
	assert.Equal(t, 1, chat.CallCount())
}

func TestEnrichTranscriptChunkedMerge(t *testing.T) {
	chunkResponses := []string{
		makeResult(t, "Part One", "First theme"),
		makeResult(t, "Part Two", "Second theme"),
		makeResult(t, "Part Three", "Third theme"),
	}
	mergedResponse := makeResult(t, "Merged Title", "Combined theme")

	chat := mock.NewMockChatModel()
	for _, r := range chunkResponses {
		chat.QueueResponse(r)
	}
	chat.QueueResponse(mergedResponse)

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)
	enricher.chunk = func(text string) []string {
		return []string{"chunk one", "chunk two", "chunk three"}
	}

	result, err := enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "long transcript"})
	require.NoError(t, err)

	// Three extractions plus one merge.
	assert.Equal(t, 4, chat.CallCount())
	assert.Equal(t, "Merged Title", result.EpisodeTitle)

	require.Len(t, chat.Calls, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, extractionSystemPrompt, chat.Calls[i].System)
	}
	mergeCall := chat.Calls[3]
	assert.Equal(t, mergeSystemPrompt, mergeCall.System)
	assert.Contains(t, mergeCall.Messages[0].Content, "Part One")
	assert.Contains(t, mergeCall.Messages[0].Content, "Part Three")
}

func TestEnrichTranscriptChunkFailureIsFatal(t *testing.T) {
	chat := mock.NewMockChatModel()
	chat.QueueResponse(makeResult(t, "Part One", "First theme"))
	// Second chunk fails on every attempt.
	chat.QueueResponse("not json")

	enricher, err := NewEnricher(chat, WithMaxRetries(0))
	require.NoError(t, err)
	enricher.chunk = func(text string) []string {
		return []string{"chunk one", "chunk two", "chunk three"}
	}

	_, err = enricher.EnrichTranscript(context.Background(), &core.Transcript{Text: "long transcript"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "chunk 2/3")
	// The third chunk is never attempted.
	assert.Equal(t, 2, chat.CallCount())
}

func TestEnrichFile(t *testing.T) {
	transcript := core.Transcript{Text: "A transcript loaded from disk."}
	data, err := json.Marshal(transcript)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "transcript.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	chat := mock.NewMockChatModel()
	chat.QueueResponse(validResponse)

	enricher, err := NewEnricher(chat)
	require.NoError(t, err)

	result, err := enricher.EnrichFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Scaling Engineering Teams", result.EpisodeTitle)
}

func TestEnrichFileMissing(t *testing.T) {
	enricher, err := NewEnricher(mock.NewMockChatModel())
	require.NoError(t, err)

	_, err = enricher.EnrichFile(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func makeResult(t *testing.T, title, themeName string) string {
	t.Helper()
	result := core.EnrichmentResult{
		EpisodeTitle: title,
		Summary:      "A summary.",
		Themes: []core.Insight{
			{Name: themeName, Description: "desc", Keywords: []string{"k"}, RelevanceScore: 0.9},
		},
		Learnings:  []core.Insight{},
		Strategies: []core.Insight{},
	}
	data, err := json.Marshal(&result)
	require.NoError(t, err)
	return string(data)
}
