package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromContent("episode-guid-123")
		id2 := IDFromContent("episode-guid-123")
		assert.Equal(t, id1, id2)
	})

	t.Run("different content different id", func(t *testing.T) {
		id1 := IDFromContent("episode-guid-123")
		id2 := IDFromContent("episode-guid-456")
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty content produces valid id", func(t *testing.T) {
		id := IDFromContent("")
		assert.NotZero(t, id)
	})
}

func TestInsightUnmarshalJSON(t *testing.T) {
	t.Run("full insight", func(t *testing.T) {
		data := `{"name":"Trend Following","description":"Systematic trend capture.","keywords":["trend","momentum"],"relevance_score":0.9}`
		var insight Insight
		require.NoError(t, json.Unmarshal([]byte(data), &insight))
		assert.Equal(t, "Trend Following", insight.Name)
		assert.Equal(t, []string{"trend", "momentum"}, insight.Keywords)
		assert.Equal(t, 0.9, insight.RelevanceScore)
	})

	t.Run("missing score defaults to 0.5", func(t *testing.T) {
		data := `{"name":"Diversification","description":"Spread risk."}`
		var insight Insight
		require.NoError(t, json.Unmarshal([]byte(data), &insight))
		assert.Equal(t, 0.5, insight.RelevanceScore)
	})

	t.Run("explicit zero score is preserved", func(t *testing.T) {
		data := `{"name":"Filler","relevance_score":0.0}`
		var insight Insight
		require.NoError(t, json.Unmarshal([]byte(data), &insight))
		assert.Equal(t, 0.0, insight.RelevanceScore)
	})

	t.Run("out-of-range score is preserved for validation to reject", func(t *testing.T) {
		data := `{"name":"Broken","relevance_score":1.5}`
		var insight Insight
		require.NoError(t, json.Unmarshal([]byte(data), &insight))
		assert.Equal(t, 1.5, insight.RelevanceScore)
		assert.Error(t, ValidateInsight(&insight))
	})
}

func TestEnrichmentResultJSON(t *testing.T) {
	result := &EnrichmentResult{
		EpisodeTitle: "Market Trends",
		Summary:      "A discussion about markets.",
		Themes: []Insight{
			{Name: "Trend Following", Description: "desc", Keywords: []string{"trend"}, RelevanceScore: 0.9},
		},
		Learnings:  []Insight{},
		Strategies: []Insight{},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	// Exactly the five top-level keys from the output contract.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 5)
	for _, key := range []string{"episode_title", "summary", "themes", "learnings", "strategies"} {
		assert.Contains(t, raw, key)
	}

	var decoded EnrichmentResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.EpisodeTitle, decoded.EpisodeTitle)
	require.Len(t, decoded.Themes, 1)
	assert.Equal(t, "Trend Following", decoded.Themes[0].Name)
}

func TestEnrichmentResultCategory(t *testing.T) {
	result := &EnrichmentResult{
		Themes:     []Insight{{Name: "t"}},
		Learnings:  []Insight{{Name: "l1"}, {Name: "l2"}},
		Strategies: []Insight{{Name: "s"}},
	}
	assert.Len(t, result.Category(CategoryTheme), 1)
	assert.Len(t, result.Category(CategoryLearning), 2)
	assert.Len(t, result.Category(CategoryStrategy), 1)
	assert.Nil(t, result.Category(InsightCategory("bogus")))
}

func TestEpisodeAudioFilename(t *testing.T) {
	episode := &Episode{
		Id:          IDFromContent("guid-1"),
		Title:       "Ep. 42: Risk & Return!",
		AudioFormat: "mp3",
	}
	name := episode.AudioFilename()
	assert.Contains(t, name, "ep_42_risk_return")
	assert.Contains(t, name, episode.HexID())
	assert.Contains(t, name, ".mp3")

	t.Run("empty title falls back to id", func(t *testing.T) {
		episode := &Episode{Id: 7, Title: "???"}
		assert.Equal(t, episode.HexID()+".mp3", episode.AudioFilename())
	})
}

func TestFeedSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Flirting with Models", "flirting-with-models"},
		{"The  Very Long Podcast Name That Never Ends Anywhere", "the-very-long-podcast-name-tha"},
		{"!!!", "podcast"},
	}
	for _, tt := range tests {
		feed := &Feed{Title: tt.title}
		assert.Equal(t, tt.want, feed.Slug())
	}
}

func TestInsightRecordTuple(t *testing.T) {
	a := &InsightRecord{EpisodeId: 1, Category: "themes", Name: "trend following"}
	b := &InsightRecord{EpisodeId: 1, Category: "learnings", Name: "trend following"}
	assert.NotEqual(t, a.Tuple(), b.Tuple())
	assert.Equal(t, IDFromContent(a.Tuple()), IDFromContent(a.Tuple()))
}
