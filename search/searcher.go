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


package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/ponderosa/ai"
	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/storage"
)

// minSimilarity is the semantic match threshold.
const minSimilarity = 0.60

// Searcher provides hybrid semantic and keyword search over insight records.
type Searcher struct {
	insightRepository storage.InsightRepository
	embedder          ai.Embedder
	logger            *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "searcher")
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	insightRepository storage.InsightRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if insightRepository == nil {
		return nil, ErrInsightRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		insightRepository: insightRepository,
		embedder:          embedder,
		logger:            slog.Default().With("component", "searcher"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchCategory searches insights in one category.
// An empty category searches all categories together.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) SearchCategory(ctx context.Context, category core.InsightCategory, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.SearchCategoryWithMonitor(ctx, category, query, maxHits, nil)
}

// SearchCategoryWithMonitor searches insights in one category with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchCategoryWithMonitor(ctx context.Context, category core.InsightCategory, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	// 1. Perform semantic search
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.insightRepository.FindSimilar(ctx, category, embedding, minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar insights", "err", err)
		return nil, err
	}

	// Track semantic results
	semanticScores := make(map[core.ID]float32)
	records := make(map[core.ID]*core.InsightRecord)
	semanticIds := make([]core.ID, 0, len(matches))
	for _, match := range matches {
		semanticScores[match.Record.Id] = match.Score
		records[match.Record.Id] = match.Record
		semanticIds = append(semanticIds, match.Record.Id)
	}
	monitor.AfterSemanticSearch(semanticIds)

	// 2. Find insights via exact keyword matching on the query words
	keywordSet := make(map[core.ID]bool)
	queryWords := tokenizeAndFilter(query)
	for _, word := range queryWords {
		hits, err := s.insightRepository.GetInsightsByKeyword(ctx, category, word)
		if err != nil {
			s.logger.Warn("failed keyword lookup", "keyword", word, "err", err)
			continue
		}
		for _, record := range hits {
			keywordSet[record.Id] = true
			records[record.Id] = record
		}
	}
	monitor.AfterKeywordSearch(queryWords, len(keywordSet))

	if len(records) == 0 {
		return []*core.SearchResult{}, nil
	}

	// 3. Combine and score results
	results := make([]*core.SearchResult, 0, len(records))
	for id, record := range records {
		similarity, inSemantic := semanticScores[id]
		inKeyword := keywordSet[id]

		var score float32
		if inSemantic && inKeyword {
			// In both: boost by 1.5x, weighted by similarity score
			score = 1.5 * similarity
			monitor.SemanticAndKeywordHit(record)
		} else if inKeyword {
			// Keyword only: 1.2
			score = 1.2
			monitor.KeywordHit(record)
		} else {
			// Semantic only: 1.0, weighted by similarity score
			score = 1.0 * similarity
			monitor.SemanticHit(record)
		}

		// Apply verbatim match boost
		if containsAllQueryWords(record.Document, query) {
			score += 0.3
		}

		results = append(results, &core.SearchResult{
			Record: record,
			Score:  score,
		})
	}

	// Sort by score descending
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	return results, nil
}

// SearchAll runs the query against every category and returns results
// keyed by category. maxHits applies per category.
func (s *Searcher) SearchAll(ctx context.Context, query string, maxHits int) (map[core.InsightCategory][]*core.SearchResult, error) {
	results := make(map[core.InsightCategory][]*core.SearchResult, len(core.Categories))
	for _, category := range core.Categories {
		hits, err := s.SearchCategory(ctx, category, query, maxHits)
		if err != nil {
			return nil, err
		}
		results[category] = hits
	}
	return results, nil
}
