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
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/poiesic/ponderosa/core"
)

// FeedParser extracts podcast episodes from RSS/Atom feeds.
// Items without an audio enclosure are skipped.
type FeedParser struct {
	parser      *gofeed.Parser
	maxEpisodes int
	logger      *slog.Logger
}

// FeedOption configures a FeedParser.
type FeedOption func(*FeedParser)

// WithMaxEpisodes caps how many episodes are taken from a feed,
// newest first. Zero means no cap.
func WithMaxEpisodes(max int) FeedOption {
	return func(p *FeedParser) {
		if max >= 0 {
			p.maxEpisodes = max
		}
	}
}

// WithFeedLogger sets a custom logger.
// Default is slog.Default().
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(p *FeedParser) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "feedparser")
	}
}

// NewFeedParser creates a feed parser.
func NewFeedParser(opts ...FeedOption) *FeedParser {
	p := &FeedParser{
		parser: gofeed.NewParser(),
		logger: slog.Default().With("component", "feedparser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseURL fetches and parses a podcast feed by URL.
func (p *FeedParser) ParseURL(ctx context.Context, url string) (*core.Feed, error) {
	parsed, err := p.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}
	return p.buildFeed(parsed, url), nil
}

// Parse parses a podcast feed from a reader. The url is recorded as the
// feed's source but not fetched.
func (p *FeedParser) Parse(r io.Reader, url string) (*core.Feed, error) {
	parsed, err := p.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return p.buildFeed(parsed, url), nil
}

func (p *FeedParser) buildFeed(parsed *gofeed.Feed, url string) *core.Feed {
	feed := &core.Feed{
		URL:         url,
		Title:       parsed.Title,
		Description: stripHTML(parsed.Description),
		Language:    parsed.Language,
		WebsiteURL:  parsed.Link,
		LastFetched: time.Now().UTC(),
	}
	if parsed.Image != nil {
		feed.ImageURL = parsed.Image.URL
	}
	if len(parsed.Authors) > 0 {
		feed.Author = parsed.Authors[0].Name
	} else if parsed.ITunesExt != nil {
		feed.Author = parsed.ITunesExt.Author
	}

	skipped := 0
	for _, item := range parsed.Items {
		if p.maxEpisodes > 0 && len(feed.Episodes) >= p.maxEpisodes {
			break
		}
		episode := p.buildEpisode(item)
		if episode == nil {
			skipped++
			continue
		}
		feed.Episodes = append(feed.Episodes, episode)
	}

	p.logger.Info("parsed feed",
		"title", feed.Title,
		"episodes", len(feed.Episodes),
		"skipped", skipped)

	return feed
}

// buildEpisode converts a feed item to an episode, or returns nil if the
// item carries no audio.
func (p *FeedParser) buildEpisode(item *gofeed.Item) *core.Episode {
	enclosure := audioEnclosure(item)
	if enclosure == nil {
		p.logger.Debug("skipping item without audio enclosure", "title", item.Title)
		return nil
	}

	guid := item.GUID
	if guid == "" {
		guid = enclosure.URL
	}

	episode := &core.Episode{
		Id:          core.IDFromContent(guid),
		Guid:        guid,
		Title:       strings.TrimSpace(item.Title),
		Description: stripHTML(item.Description),
		AudioURL:    enclosure.URL,
		AudioFormat: audioFormat(enclosure),
	}

	if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
		episode.AudioSizeBytes = length
	}
	if item.PublishedParsed != nil {
		episode.PublishedAt = item.PublishedParsed.UTC()
	}
	if item.Image != nil {
		episode.ImageURL = item.Image.URL
	}

	if ext := item.ITunesExt; ext != nil {
		episode.DurationSecs = parseDuration(ext.Duration)
		episode.Season, _ = strconv.Atoi(ext.Season)
		episode.EpisodeNumber, _ = strconv.Atoi(ext.Episode)
		if episode.ImageURL == "" {
			episode.ImageURL = ext.Image
		}
	}

	return episode
}

// audioEnclosure returns the first enclosure carrying audio, or nil.
func audioEnclosure(item *gofeed.Item) *gofeed.Enclosure {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "audio/") || hasAudioExtension(enc.URL) {
			return enc
		}
	}
	return nil
}

var audioExtensions = []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".aac"}

func hasAudioExtension(url string) bool {
	// Drop query parameters before checking the extension
	if idx := strings.IndexByte(url, '?'); idx != -1 {
		url = url[:idx]
	}
	lower := strings.ToLower(url)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// audioFormat derives a short format name from the enclosure MIME type,
// falling back to the URL extension.
func audioFormat(enc *gofeed.Enclosure) string {
	switch enc.Type {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/mp4", "audio/x-m4a", "audio/m4a":
		return "m4a"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/flac":
		return "flac"
	case "audio/ogg":
		return "ogg"
	case "audio/aac":
		return "aac"
	}

	url := enc.URL
	if idx := strings.IndexByte(url, '?'); idx != -1 {
		url = url[:idx]
	}
	lower := strings.ToLower(url)
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext[1:]
		}
	}
	return "mp3"
}

// parseDuration handles the iTunes duration formats: plain seconds,
// "MM:SS", and "HH:MM:SS".
func parseDuration(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return secs
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

var htmlTags = regexp.MustCompile(`<[^>]+>`)

// stripHTML removes markup from feed descriptions, collapsing whitespace.
func stripHTML(text string) string {
	text = htmlTags.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
