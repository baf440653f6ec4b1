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


package ponderosa

import (
	"log/slog"
	"path/filepath"

	"github.com/poiesic/ponderosa/ai"
	"github.com/poiesic/ponderosa/ai/openai"
	"github.com/poiesic/ponderosa/enrichment"
	"github.com/poiesic/ponderosa/ingestion"
	"github.com/poiesic/ponderosa/search"
	"github.com/poiesic/ponderosa/storage"
	"github.com/poiesic/ponderosa/storage/badger"
	"github.com/poiesic/ponderosa/transcription"
)

// Database bundles the storage backend, repositories, and AI provider
// behind one open/close lifecycle. It is the entry point applications use
// to build pipelines, enrichers, and searchers that share resources.
type Database struct {
	backend     *badger.Backend
	episodeRepo storage.EpisodeRepository
	insightRepo storage.InsightRepository
	provider    ai.Provider
	audioDir    string
	logger      *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	audioDir string
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAudioDir sets the directory downloaded audio files are stored in.
// Default is an "audio" directory next to the database.
func WithAudioDir(dir string) DatabaseOption {
	return func(o *databaseOptions) {
		o.audioDir = dir
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		audioDir: filepath.Join(filepath.Dir(filePath), "audio"),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	// Create episode repository
	episodeRepo, err := badger.NewEpisodeRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create insight repository
	insightRepo, err := badger.NewInsightRepository(backend)
	if err != nil {
		episodeRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		insightRepo.Close()
		episodeRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:     backend,
		episodeRepo: episodeRepo,
		insightRepo: insightRepo,
		provider:    provider,
		audioDir:    options.audioDir,
		logger:      slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.insightRepo.Close(); err != nil {
		db.logger.Error("error closing insight repository", "err", err)
		return err
	}
	if err := db.episodeRepo.Close(); err != nil {
		db.logger.Error("error closing episode repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) EpisodeRepository() storage.EpisodeRepository {
	return db.episodeRepo
}

func (db *Database) InsightRepository() storage.InsightRepository {
	return db.insightRepo
}

// AudioDir is where ingestion pipelines created from this database store
// downloaded audio.
func (db *Database) AudioDir() string {
	return db.audioDir
}

// NewEnricher creates an enricher backed by the database's chat model.
func (db *Database) NewEnricher(opts ...enrichment.Option) (*enrichment.Enricher, error) {
	return enrichment.NewEnricher(db.provider.ChatModel(), opts...)
}

// NewTranscriber creates a transcriber for the local whisper service.
func (db *Database) NewTranscriber(opts ...transcription.Option) *transcription.Transcriber {
	return transcription.NewTranscriber(opts...)
}

// NewIngestionPipeline wires a full pipeline from the database's
// repositories and AI provider: audio download, transcription, enrichment,
// embedding, and storage.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	enricher, err := db.NewEnricher()
	if err != nil {
		return nil, err
	}

	return ingestion.NewPipeline(
		db.episodeRepo,
		db.insightRepo,
		ingestion.NewAudioDownloader(db.audioDir),
		db.NewTranscriber(),
		enricher,
		db.provider.Embedder(),
		opts...,
	)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.insightRepo, db.provider.Embedder(), opts...)
}
