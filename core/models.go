package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Hex renders the ID as fixed-width lowercase hex.
func (id ID) Hex() string {
	return hexID(id)
}

// ParseID parses the hex form produced by Hex back into an ID.
func ParseID(s string) (ID, error) {
	value, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, err
	}
	return ID(value), nil
}

// ParseCategory maps a category name to its InsightCategory.
// Returns false when the name is not a known category.
func ParseCategory(name string) (InsightCategory, bool) {
	for _, category := range Categories {
		if string(category) == name {
			return category, true
		}
	}
	return "", false
}

// InsightCategory identifies which enrichment category an insight belongs to.
type InsightCategory string

const (
	// CategoryTheme is a recurring topic discussed in an episode.
	CategoryTheme InsightCategory = "themes"
	// CategoryLearning is a concrete takeaway or lesson.
	CategoryLearning InsightCategory = "learnings"
	// CategoryStrategy is an actionable approach or technique.
	CategoryStrategy InsightCategory = "strategies"
)

// Categories lists all insight categories in serialization order.
var Categories = []InsightCategory{CategoryTheme, CategoryLearning, CategoryStrategy}

// defaultRelevanceScore is assigned when the model omits relevance_score.
const defaultRelevanceScore = 0.5

// Insight is one named, described, scored unit of extracted analysis.
type Insight struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Keywords       []string `json:"keywords"`
	RelevanceScore float64  `json:"relevance_score"`
}

// UnmarshalJSON decodes an insight, defaulting relevance_score to 0.5
// when the key is absent. Out-of-range scores are preserved here and
// rejected by validation, never clamped.
func (i *Insight) UnmarshalJSON(data []byte) error {
	type alias struct {
		Name           string   `json:"name"`
		Description    string   `json:"description"`
		Keywords       []string `json:"keywords"`
		RelevanceScore *float64 `json:"relevance_score"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	i.Name = a.Name
	i.Description = a.Description
	i.Keywords = a.Keywords
	if a.RelevanceScore != nil {
		i.RelevanceScore = *a.RelevanceScore
	} else {
		i.RelevanceScore = defaultRelevanceScore
	}
	return nil
}

// EnrichmentResult is the full structured output of analyzing one transcript.
// Results are never mutated after construction; merging produces a new instance.
type EnrichmentResult struct {
	EpisodeTitle string    `json:"episode_title"`
	Summary      string    `json:"summary"`
	Themes       []Insight `json:"themes"`
	Learnings    []Insight `json:"learnings"`
	Strategies   []Insight `json:"strategies"`
}

// Category returns the insights belonging to the given category.
func (r *EnrichmentResult) Category(c InsightCategory) []Insight {
	switch c {
	case CategoryTheme:
		return r.Themes
	case CategoryLearning:
		return r.Learnings
	case CategoryStrategy:
		return r.Strategies
	}
	return nil
}

// Segment is a single timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the output of transcribing one audio file.
// Text may be empty, in which case Segments carry the content.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
}

// Episode represents a single podcast episode parsed from an RSS feed.
type Episode struct {
	Id             ID
	Guid           string
	Title          string
	Description    string
	AudioURL       string
	AudioFormat    string
	AudioSizeBytes int64
	DurationSecs   int
	PublishedAt    time.Time
	Season         int
	EpisodeNumber  int
	ImageURL       string
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// AudioFilename generates a stable, filesystem-safe name for the episode audio.
func (e *Episode) AudioFilename() string {
	safe := nonAlnum.ReplaceAllString(e.Title, "_")
	if len(safe) > 50 {
		safe = safe[:50]
	}
	safe = strings.ToLower(strings.Trim(safe, "_"))
	format := e.AudioFormat
	if format == "" {
		format = "mp3"
	}
	if safe == "" {
		return hexID(e.Id) + "." + format
	}
	return hexID(e.Id) + "_" + safe + "." + format
}

// hexID renders an ID as fixed-width lowercase hex for filenames and URLs.
func hexID(id ID) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = digits[id&0xf]
		id >>= 4
	}
	return string(buf)
}

// HexID renders the episode ID as a short stable string identifier.
func (e *Episode) HexID() string {
	return hexID(e.Id)
}

// Feed represents a podcast feed with metadata and episodes.
type Feed struct {
	URL         string
	Title       string
	Description string
	Author      string
	ImageURL    string
	WebsiteURL  string
	Language    string
	Episodes    []*Episode
	LastFetched time.Time
}

// Slug generates a URL-safe slug for the podcast, used as a storage prefix.
func (f *Feed) Slug() string {
	safe := nonAlnum.ReplaceAllString(f.Title, "-")
	if len(safe) > 30 {
		safe = safe[:30]
	}
	safe = strings.ToLower(strings.Trim(safe, "-"))
	if safe == "" {
		return "podcast"
	}
	return safe
}

// InsightRecord is the persisted, embeddable form of one Insight.
// It may be enriched with an embedding vector during processing.
type InsightRecord struct {
	Id             ID
	EpisodeId      ID
	EpisodeTitle   string
	Category       string
	Name           string
	Document       string
	Keywords       []string
	RelevanceScore float64
	Vector         []float32 // Embedding vector for semantic search (populated by processors)
	InsertedAt     time.Time
	UpdatedAt      time.Time
}

// Tuple returns a string representation of the record as "(Category,EpisodeId,Name)".
// This is used for generating deterministic IDs.
func (r *InsightRecord) Tuple() string {
	return "(" + r.Category + "," + hexID(r.EpisodeId) + "," + r.Name + ")"
}

// SearchResult represents a search result with the full record and relevance score.
type SearchResult struct {
	Record *InsightRecord
	Score  float32
}
