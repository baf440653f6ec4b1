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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ponderosa/ai/mock"
	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/storage"
	"github.com/poiesic/ponderosa/storage/badger"
)

func newMemoryInsightRepository(t *testing.T) storage.InsightRepository {
	t.Helper()

	episodeRepo, insightRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		insightRepo.Close()
		episodeRepo.Close()
		backend.Close()
	})

	return insightRepo
}

// queryVector is what the mock embedder returns for every query, so the
// similarity of each stored record is controlled by its own vector.
var queryVector = []float32{1, 0, 0}

func newTestSearcher(t *testing.T) (*Searcher, storage.InsightRepository) {
	t.Helper()

	insightRepo := newMemoryInsightRepository(t)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return queryVector, nil
	}

	searcher, err := NewSearcher(insightRepo, embedder)
	require.NoError(t, err)

	return searcher, insightRepo
}

func addInsight(t *testing.T, repo storage.InsightRepository, category core.InsightCategory, name, document string, keywords []string, vector []float32) *core.InsightRecord {
	t.Helper()

	record := &core.InsightRecord{
		EpisodeId:      core.IDFromContent("ep-" + name),
		EpisodeTitle:   "Episode " + name,
		Category:       string(category),
		Name:           name,
		Document:       document,
		Keywords:       keywords,
		Vector:         vector,
		RelevanceScore: 0.8,
	}

	added, err := repo.AddInsightRecords(context.Background(), record)
	require.NoError(t, err)
	require.Len(t, added, 1)
	return added[0]
}

func TestNewSearcherValidation(t *testing.T) {
	insightRepo := newMemoryInsightRepository(t)

	_, err := NewSearcher(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ErrInsightRepositoryRequired)

	_, err = NewSearcher(insightRepo, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestSearchCategoryEmptyQuery(t *testing.T) {
	searcher, _ := newTestSearcher(t)
	_, err := searcher.SearchCategory(context.Background(), core.CategoryTheme, "", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchCategoryNoMatches(t *testing.T) {
	searcher, _ := newTestSearcher(t)
	results, err := searcher.SearchCategory(context.Background(), core.CategoryTheme, "anything at all", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCategoryHybridScoring(t *testing.T) {
	searcher, repo := newTestSearcher(t)
	ctx := context.Background()

	// Semantic and keyword hit, plus verbatim match: 1.5*1.0 + 0.3
	both := addInsight(t, repo, core.CategoryTheme, "Both",
		"Scaling engineering teams deliberately.",
		[]string{"scaling"}, []float32{1, 0, 0})

	// Semantic hit only: similarity 0.8
	semantic := addInsight(t, repo, core.CategoryTheme, "Semantic",
		"Growing an organization.",
		[]string{"growth"}, []float32{0.8, 0.6, 0})

	// Keyword hit only, no verbatim match: 1.2
	keyword := addInsight(t, repo, core.CategoryTheme, "Keyword",
		"Hiring ahead of demand.",
		[]string{"scaling"}, []float32{0, 1, 0})

	results, err := searcher.SearchCategory(ctx, core.CategoryTheme, "scaling", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, both.Id, results[0].Record.Id)
	assert.InDelta(t, 1.8, results[0].Score, 0.001)

	assert.Equal(t, keyword.Id, results[1].Record.Id)
	assert.InDelta(t, 1.2, results[1].Score, 0.001)

	assert.Equal(t, semantic.Id, results[2].Record.Id)
	assert.InDelta(t, 0.8, results[2].Score, 0.001)
}

func TestSearchCategoryBelowThresholdExcluded(t *testing.T) {
	searcher, repo := newTestSearcher(t)

	// Similarity 0.5 is under the 0.60 floor and shares no keywords
	addInsight(t, repo, core.CategoryTheme, "Weak",
		"Something unrelated.",
		[]string{"unrelated"}, []float32{0.5, 0.866, 0})

	results, err := searcher.SearchCategory(context.Background(), core.CategoryTheme, "scaling", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCategoryFiltersByCategory(t *testing.T) {
	searcher, repo := newTestSearcher(t)

	addInsight(t, repo, core.CategoryLearning, "Other",
		"Scaling lessons learned.",
		[]string{"scaling"}, []float32{1, 0, 0})

	results, err := searcher.SearchCategory(context.Background(), core.CategoryTheme, "scaling", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = searcher.SearchCategory(context.Background(), core.CategoryLearning, "scaling", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchCategoryMaxHits(t *testing.T) {
	searcher, repo := newTestSearcher(t)

	addInsight(t, repo, core.CategoryTheme, "A", "First scaling insight.", []string{"scaling"}, []float32{1, 0, 0})
	addInsight(t, repo, core.CategoryTheme, "B", "Second scaling insight.", []string{"scaling"}, []float32{0.9, 0.4359, 0})
	addInsight(t, repo, core.CategoryTheme, "C", "Third scaling insight.", []string{"scaling"}, []float32{0.7, 0.7141, 0})

	results, err := searcher.SearchCategory(context.Background(), core.CategoryTheme, "scaling", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchAll(t *testing.T) {
	searcher, repo := newTestSearcher(t)

	addInsight(t, repo, core.CategoryTheme, "Theme", "Scaling themes.", []string{"scaling"}, []float32{1, 0, 0})
	addInsight(t, repo, core.CategoryStrategy, "Strategy", "Scaling strategies.", []string{"scaling"}, []float32{1, 0, 0})

	results, err := searcher.SearchAll(context.Background(), "scaling", 10)
	require.NoError(t, err)
	require.Len(t, results, len(core.Categories))

	assert.Len(t, results[core.CategoryTheme], 1)
	assert.Len(t, results[core.CategoryStrategy], 1)
	assert.Empty(t, results[core.CategoryLearning])
}

// recordingMonitor captures monitor callbacks for assertions.
type recordingMonitor struct {
	started      bool
	semanticIds  []core.ID
	keywords     []string
	keywordHits  int
	bothHits     int
	semanticHits int
	keywordOnly  int
	finished     []*core.SearchResult
}

func (m *recordingMonitor) Start(_ string)                  { m.started = true }
func (m *recordingMonitor) AfterSemanticSearch(ids []core.ID) { m.semanticIds = ids }
func (m *recordingMonitor) AfterKeywordSearch(keywords []string, hits int) {
	m.keywords = keywords
	m.keywordHits = hits
}
func (m *recordingMonitor) SemanticAndKeywordHit(_ *core.InsightRecord) { m.bothHits++ }
func (m *recordingMonitor) SemanticHit(_ *core.InsightRecord)          { m.semanticHits++ }
func (m *recordingMonitor) KeywordHit(_ *core.InsightRecord)           { m.keywordOnly++ }
func (m *recordingMonitor) Finish(results []*core.SearchResult)        { m.finished = results }

func TestSearchCategoryWithMonitor(t *testing.T) {
	searcher, repo := newTestSearcher(t)

	addInsight(t, repo, core.CategoryTheme, "Both",
		"Scaling engineering teams.", []string{"scaling"}, []float32{1, 0, 0})
	addInsight(t, repo, core.CategoryTheme, "Keyword",
		"Hiring ahead of demand.", []string{"scaling"}, []float32{0, 1, 0})

	monitor := &recordingMonitor{}
	results, err := searcher.SearchCategoryWithMonitor(context.Background(), core.CategoryTheme, "scaling", 10, monitor)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, monitor.started)
	assert.Len(t, monitor.semanticIds, 1)
	assert.Equal(t, []string{"scaling"}, monitor.keywords)
	assert.Equal(t, 2, monitor.keywordHits)
	assert.Equal(t, 1, monitor.bothHits)
	assert.Equal(t, 1, monitor.keywordOnly)
	assert.Equal(t, 0, monitor.semanticHits)
	assert.Len(t, monitor.finished, 2)
}

func TestTokenizeAndFilter(t *testing.T) {
	assert.Equal(t, []string{"scaling", "teams"}, tokenizeAndFilter("Scaling the teams!"))
	assert.Equal(t, []string{"remote", "work"}, tokenizeAndFilter("remote work"))
	assert.Empty(t, tokenizeAndFilter("the a an"))
}

func TestContainsAllQueryWords(t *testing.T) {
	doc := "Scaling engineering teams deliberately."
	assert.True(t, containsAllQueryWords(doc, "scaling teams"))
	assert.True(t, containsAllQueryWords(doc, "the scaling"))
	assert.False(t, containsAllQueryWords(doc, "scaling revenue"))
	assert.False(t, containsAllQueryWords(doc, "the a an"))
}
