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
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/ponderosa/ai"
	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/storage"
)

// defaultConcurrency is how many episodes are processed at once. Enrichment
// of a single transcript stays strictly sequential; only episodes run in
// parallel.
const defaultConcurrency = 5

// Transcriber converts a downloaded audio file into a transcript.
type Transcriber interface {
	TranscribeFile(ctx context.Context, audioPath string) (*core.Transcript, error)
}

// Enricher extracts structured insights from a transcript.
type Enricher interface {
	EnrichTranscript(ctx context.Context, transcript *core.Transcript) (*core.EnrichmentResult, error)
}

// Pipeline orchestrates ingestion of podcast feeds: download, transcribe,
// enrich, embed, store. Episodes run concurrently on a worker pool.
type Pipeline struct {
	episodeRepo storage.EpisodeRepository
	insightRepo storage.InsightRepository
	downloader  Downloader
	transcriber Transcriber
	enricher    Enricher
	embedder    ai.Embedder
	pool        *ants.Pool
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConcurrency sets how many episodes are processed in parallel.
// Default is 5.
func WithConcurrency(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	episodeRepo storage.EpisodeRepository,
	insightRepo storage.InsightRepository,
	downloader Downloader,
	transcriber Transcriber,
	enricher Enricher,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if episodeRepo == nil {
		return nil, ErrEpisodeRepositoryRequired
	}
	if insightRepo == nil {
		return nil, ErrInsightRepositoryRequired
	}
	if downloader == nil {
		return nil, ErrDownloaderRequired
	}
	if transcriber == nil {
		return nil, ErrTranscriberRequired
	}
	if enricher == nil {
		return nil, ErrEnricherRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	pool, err := ants.NewPool(defaultConcurrency)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		episodeRepo: episodeRepo,
		insightRepo: insightRepo,
		downloader:  downloader,
		transcriber: transcriber,
		enricher:    enricher,
		embedder:    embedder,
		pool:        pool,
		logger:      slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Report summarizes one feed ingestion run.
type Report struct {
	// Added is how many new episodes the feed contributed.
	Added int
	// Processed is how many episodes completed the full pipeline.
	Processed int
	// Failed is how many episodes errored at some stage.
	Failed int
}

// IngestFeed stores the feed's episodes and processes the new ones through
// download, transcription, enrichment, embedding, and storage. It blocks
// until every episode has finished. Per-episode errors are logged and
// counted; they do not fail the run.
func (p *Pipeline) IngestFeed(ctx context.Context, feed *core.Feed) (*Report, error) {
	added, err := p.episodeRepo.AddEpisodes(ctx, feed.Episodes...)
	if err != nil {
		return nil, err
	}

	report := &Report{Added: len(added)}
	p.logger.Info("ingesting feed",
		"feed", feed.Title,
		"episodes", len(feed.Episodes),
		"new", len(added))

	if len(added) == 0 {
		return report, nil
	}

	var wg sync.WaitGroup
	var processed, failed atomic.Int64

	for _, episode := range added {
		episode := episode
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.ProcessEpisode(ctx, episode); err != nil {
				failed.Add(1)
				p.logger.Error("episode processing failed",
					"episode", episode.Title,
					"id", episode.HexID(),
					"err", err)
				return
			}
			processed.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			p.logger.Error("failed to submit episode", "episode", episode.Title, "err", submitErr)
		}
	}

	wg.Wait()

	report.Processed = int(processed.Load())
	report.Failed = int(failed.Load())

	p.logger.Info("feed ingestion complete",
		"feed", feed.Title,
		"processed", report.Processed,
		"failed", report.Failed)

	return report, nil
}

// ProcessEpisode runs one episode through the full pipeline:
// download, transcribe, enrich, store result, embed and store insights.
// The enrichment result is persisted exactly once, before insights are
// derived from it.
func (p *Pipeline) ProcessEpisode(ctx context.Context, episode *core.Episode) error {
	audioPath, err := p.downloader.DownloadEpisode(ctx, episode)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	transcript, err := p.transcriber.TranscribeFile(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	result, err := p.enricher.EnrichTranscript(ctx, transcript)
	if err != nil {
		return fmt.Errorf("enrich: %w", err)
	}

	if err := p.episodeRepo.StoreEnrichment(ctx, episode.Id, result); err != nil {
		return fmt.Errorf("store enrichment: %w", err)
	}

	records := buildInsightRecords(episode, result)
	if len(records) == 0 {
		return nil
	}

	if err := p.embedRecords(ctx, records); err != nil {
		return fmt.Errorf("embed insights: %w", err)
	}

	if _, err := p.insightRepo.AddInsightRecords(ctx, records...); err != nil {
		return fmt.Errorf("store insights: %w", err)
	}

	p.logger.Info("episode processed",
		"episode", episode.Title,
		"id", episode.HexID(),
		"insights", len(records))

	return nil
}

// embedRecords embeds record documents in one batch and attaches the
// vectors in order.
func (p *Pipeline) embedRecords(ctx context.Context, records []*core.InsightRecord) error {
	documents := make([]string, len(records))
	for i, record := range records {
		documents[i] = record.Document
	}

	vectors, err := p.embedder.EmbedTexts(ctx, documents)
	if err != nil {
		return err
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(records))
	}

	for i, record := range records {
		record.Vector = vectors[i]
	}
	return nil
}

// buildInsightRecords flattens an enrichment result into persisted records,
// one per insight across all categories.
func buildInsightRecords(episode *core.Episode, result *core.EnrichmentResult) []*core.InsightRecord {
	var records []*core.InsightRecord
	for _, category := range core.Categories {
		for _, insight := range result.Category(category) {
			records = append(records, &core.InsightRecord{
				EpisodeId:      episode.Id,
				EpisodeTitle:   episode.Title,
				Category:       string(category),
				Name:           insight.Name,
				Document:       insightDocument(insight),
				Keywords:       insight.Keywords,
				RelevanceScore: insight.RelevanceScore,
			})
		}
	}
	return records
}

// insightDocument builds the text that gets embedded for an insight.
func insightDocument(insight core.Insight) string {
	if insight.Description == "" {
		return insight.Name
	}
	return insight.Name + ". " + insight.Description
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
