// Package ingestion provides pipeline orchestration for processing podcast episodes.
//
// The Pipeline type manages the full ingestion workflow for a feed, including:
//   - Parsing RSS feeds into episodes
//   - Downloading episode audio
//   - Transcribing, enriching, and persisting results
//   - Embedding extracted insights for semantic search
//
// Episodes are processed concurrently using a worker pool. Errors in one
// episode are logged and counted but do not fail the rest of the feed.
package ingestion
