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


package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ponderosa/ai/mock"
	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/storage"
	"github.com/poiesic/ponderosa/storage/badger"
)

type stubDownloader struct {
	err   error
	calls int
}

func (s *stubDownloader) DownloadEpisode(ctx context.Context, episode *core.Episode) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "/tmp/" + episode.AudioFilename(), nil
}

type stubTranscriber struct {
	err   error
	calls int
}

func (s *stubTranscriber) TranscribeFile(ctx context.Context, audioPath string) (*core.Transcript, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &core.Transcript{Text: "transcript for " + audioPath}, nil
}

type stubEnricher struct {
	err   error
	calls int
}

func (s *stubEnricher) EnrichTranscript(ctx context.Context, transcript *core.Transcript) (*core.EnrichmentResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &core.EnrichmentResult{
		EpisodeTitle: "Enriched",
		Summary:      "A summary.",
		Themes: []core.Insight{
			{Name: "Theme One", Description: "About scaling.", Keywords: []string{"scaling"}, RelevanceScore: 0.9},
		},
		Learnings: []core.Insight{
			{Name: "Learning One", Description: "Hire slowly.", Keywords: []string{"hiring"}, RelevanceScore: 0.7},
		},
	}, nil
}

func newTestPipeline(t *testing.T, downloader Downloader, transcriber Transcriber, enricher Enricher) (*Pipeline, storage.EpisodeRepository, storage.InsightRepository) {
	t.Helper()

	episodeRepo, insightRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		insightRepo.Close()
		episodeRepo.Close()
		backend.Close()
	})

	pipeline, err := NewPipeline(episodeRepo, insightRepo, downloader, transcriber, enricher, mock.NewMockEmbedder())
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, episodeRepo, insightRepo
}

func feedWithEpisodes(guids ...string) *core.Feed {
	feed := &core.Feed{Title: "Test Feed", URL: "https://example.com/feed.xml"}
	for i, guid := range guids {
		feed.Episodes = append(feed.Episodes, &core.Episode{
			Guid:        guid,
			Title:       "Episode " + guid,
			AudioURL:    "https://cdn.example.com/" + guid + ".mp3",
			AudioFormat: "mp3",
			PublishedAt: time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	return feed
}

func TestNewPipelineValidation(t *testing.T) {
	episodeRepo, insightRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { insightRepo.Close(); episodeRepo.Close(); backend.Close() }()

	dl, tr, en, em := &stubDownloader{}, &stubTranscriber{}, &stubEnricher{}, mock.NewMockEmbedder()

	_, err = NewPipeline(nil, insightRepo, dl, tr, en, em)
	assert.ErrorIs(t, err, ErrEpisodeRepositoryRequired)

	_, err = NewPipeline(episodeRepo, nil, dl, tr, en, em)
	assert.ErrorIs(t, err, ErrInsightRepositoryRequired)

	_, err = NewPipeline(episodeRepo, insightRepo, nil, tr, en, em)
	assert.ErrorIs(t, err, ErrDownloaderRequired)

	_, err = NewPipeline(episodeRepo, insightRepo, dl, nil, en, em)
	assert.ErrorIs(t, err, ErrTranscriberRequired)

	_, err = NewPipeline(episodeRepo, insightRepo, dl, tr, nil, em)
	assert.ErrorIs(t, err, ErrEnricherRequired)

	_, err = NewPipeline(episodeRepo, insightRepo, dl, tr, en, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestIngestFeed(t *testing.T) {
	pipeline, episodeRepo, insightRepo := newTestPipeline(t, &stubDownloader{}, &stubTranscriber{}, &stubEnricher{})

	ctx := context.Background()
	report, err := pipeline.IngestFeed(ctx, feedWithEpisodes("ep-1", "ep-2"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Failed)

	// Enrichment results stored per episode
	episodes, err := episodeRepo.ListEpisodes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, episodes, 2)
	for _, episode := range episodes {
		result, err := episodeRepo.GetEnrichment(ctx, episode.Id)
		require.NoError(t, err)
		assert.Equal(t, "Enriched", result.EpisodeTitle)

		// Insight records flattened across categories, embedded
		records, err := insightRepo.GetInsightsByEpisode(ctx, episode.Id)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, record := range records {
			assert.NotEmpty(t, record.Vector)
			assert.Equal(t, episode.Id, record.EpisodeId)
		}
	}
}

func TestIngestFeedIsIdempotent(t *testing.T) {
	enricher := &stubEnricher{}
	pipeline, _, _ := newTestPipeline(t, &stubDownloader{}, &stubTranscriber{}, enricher)

	ctx := context.Background()
	feed := feedWithEpisodes("ep-1")

	report, err := pipeline.IngestFeed(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)

	// Second run adds nothing and processes nothing
	report, err = pipeline.IngestFeed(ctx, feedWithEpisodes("ep-1"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, enricher.calls)
}

func TestIngestFeedEpisodeFailureIsIsolated(t *testing.T) {
	transcriber := &stubTranscriber{err: errors.New("whisper down")}
	pipeline, episodeRepo, _ := newTestPipeline(t, &stubDownloader{}, transcriber, &stubEnricher{})

	ctx := context.Background()
	report, err := pipeline.IngestFeed(ctx, feedWithEpisodes("ep-1", "ep-2"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 2, report.Failed)

	// Episodes themselves are stored even when processing fails
	episodes, err := episodeRepo.ListEpisodes(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, episodes, 2)
}

func TestProcessEpisodeStoresExactlyOneEnrichment(t *testing.T) {
	pipeline, episodeRepo, _ := newTestPipeline(t, &stubDownloader{}, &stubTranscriber{}, &stubEnricher{})

	ctx := context.Background()
	added, err := episodeRepo.AddEpisodes(ctx, feedWithEpisodes("ep-1").Episodes...)
	require.NoError(t, err)
	require.Len(t, added, 1)

	require.NoError(t, pipeline.ProcessEpisode(ctx, added[0]))

	result, err := episodeRepo.GetEnrichment(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Enriched", result.EpisodeTitle)
}

func TestBuildInsightRecords(t *testing.T) {
	episode := &core.Episode{Id: core.IDFromContent("ep-1"), Title: "Episode One"}
	result := &core.EnrichmentResult{
		Themes:     []core.Insight{{Name: "T", Description: "t desc", Keywords: []string{"k1"}, RelevanceScore: 0.9}},
		Learnings:  []core.Insight{{Name: "L", RelevanceScore: 0.5}},
		Strategies: []core.Insight{{Name: "S", Description: "s desc", RelevanceScore: 0.7}},
	}

	records := buildInsightRecords(episode, result)
	require.Len(t, records, 3)

	assert.Equal(t, string(core.CategoryTheme), records[0].Category)
	assert.Equal(t, "T. t desc", records[0].Document)
	assert.Equal(t, "Episode One", records[0].EpisodeTitle)

	// Description-less insights embed the name alone
	assert.Equal(t, "L", records[1].Document)
	assert.Equal(t, string(core.CategoryStrategy), records[2].Category)
}
