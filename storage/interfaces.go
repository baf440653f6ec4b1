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


package storage

import (
	"context"

	"github.com/poiesic/ponderosa/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// EpisodeRepository provides operations for managing podcast episodes and
// their enrichment results.
type EpisodeRepository interface {
	Repository
	// AddEpisodes adds one or more episodes to storage.
	// For episodes with ID=0, generates content-based IDs from the GUID.
	// Sets InsertedAt timestamp if not already set.
	// Episodes whose ID already exists are skipped, not overwritten.
	// Returns the episodes actually added, with IDs and timestamps populated.
	AddEpisodes(ctx context.Context, episodes ...*core.Episode) ([]*core.Episode, error)

	// UpdateEpisodes updates existing episodes.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any episode doesn't exist.
	UpdateEpisodes(ctx context.Context, episodes ...*core.Episode) ([]*core.Episode, error)

	// GetEpisode retrieves a single episode by ID.
	// Returns ErrNotFound if the episode doesn't exist.
	GetEpisode(ctx context.Context, id core.ID) (*core.Episode, error)

	// GetEpisodes retrieves multiple episodes by their IDs.
	// Returns only the episodes that exist (no error for missing episodes).
	GetEpisodes(ctx context.Context, ids ...core.ID) ([]*core.Episode, error)

	// ListEpisodes retrieves up to limit episodes ordered by publication
	// date, most recent first. A limit <= 0 returns all episodes.
	ListEpisodes(ctx context.Context, limit int) ([]*core.Episode, error)

	// StoreEnrichment persists the enrichment result for an episode,
	// replacing any previous result.
	// Returns ErrNotFound if the episode doesn't exist.
	StoreEnrichment(ctx context.Context, episodeID core.ID, result *core.EnrichmentResult) error

	// GetEnrichment retrieves the enrichment result for an episode.
	// Returns ErrNotFound if no result has been stored.
	GetEnrichment(ctx context.Context, episodeID core.ID) (*core.EnrichmentResult, error)
}

// InsightRepository provides operations for managing embeddable insight
// records extracted from episodes.
type InsightRepository interface {
	Repository
	// AddInsightRecords adds one or more insight records to storage.
	// Uses content-based IDs (IDFromContent of the record tuple).
	// Sets InsertedAt timestamp if not already set.
	// Re-adding an existing record overwrites it, which makes ingestion
	// of the same episode idempotent.
	AddInsightRecords(ctx context.Context, records ...*core.InsightRecord) ([]*core.InsightRecord, error)

	// DeleteInsightRecords removes insight records by their IDs.
	// Also removes associated keyword index entries.
	// Returns ErrNotFound if any record doesn't exist.
	DeleteInsightRecords(ctx context.Context, ids ...core.ID) error

	// GetInsightRecord retrieves a single insight record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetInsightRecord(ctx context.Context, id core.ID) (*core.InsightRecord, error)

	// GetInsightRecords retrieves multiple insight records by their IDs.
	// Returns only the records that exist (no error for missing records).
	GetInsightRecords(ctx context.Context, ids ...core.ID) ([]*core.InsightRecord, error)

	// GetInsightsByEpisode retrieves all insight records extracted from
	// the given episode.
	GetInsightsByEpisode(ctx context.Context, episodeID core.ID) ([]*core.InsightRecord, error)

	// ListInsightRecords retrieves every insight record in storage.
	// Used by maintenance operations such as re-embedding.
	ListInsightRecords(ctx context.Context) ([]*core.InsightRecord, error)

	// GetInsightsByKeyword retrieves insight records in a category whose
	// keywords contain an exact match for the given keyword.
	// An empty category matches all categories.
	GetInsightsByKeyword(ctx context.Context, category core.InsightCategory, keyword string) ([]*core.InsightRecord, error)

	// FindSimilar finds insight records similar to the given vector.
	// Returns records with similarity >= minSimilarity, up to limit
	// results, ordered by similarity score (highest first). An empty
	// category matches all categories.
	FindSimilar(ctx context.Context, category core.InsightCategory, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}
