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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/ponderosa"
	"github.com/poiesic/ponderosa/ai"
	"github.com/poiesic/ponderosa/ai/openai"
	"github.com/poiesic/ponderosa/api"
	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/enrichment"
	"github.com/poiesic/ponderosa/ingestion"
	"github.com/poiesic/ponderosa/reembed"
	"github.com/poiesic/ponderosa/storage/badger"
	"github.com/poiesic/ponderosa/transcription"
)

func main() {
	// Local .env overrides nothing already set in the environment
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "ponderosa",
		Usage: "Podcast intelligence pipeline: ingest, transcribe, enrich, search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "parse-feed",
				Usage:     "Fetch an RSS feed and print its episodes",
				ArgsUsage: "<feed-url>",
				Action:    parseFeedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-episodes",
						Usage: "Limit the number of episodes parsed (0 = all)",
					},
				},
			},
			{
				Name:      "download",
				Usage:     "Download audio for every episode in a feed",
				ArgsUsage: "<feed-url>",
				Action:    downloadCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "audio-dir",
						Usage: "Directory to store downloaded audio",
						Value: "./audio",
					},
					&cli.IntFlag{
						Name:  "max-episodes",
						Usage: "Limit the number of episodes downloaded (0 = all)",
					},
				},
			},
			{
				Name:      "transcribe",
				Usage:     "Transcribe an audio file with a whisper-compatible service",
				ArgsUsage: "<audio-file>",
				Action:    transcribeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "whisper-host",
						Usage:   "Whisper-compatible transcription service URL",
						Value:   transcription.DefaultHost,
						EnvVars: []string{"PONDEROSA_WHISPER_HOST"},
					},
					&cli.StringFlag{
						Name:  "whisper-model",
						Usage: "Transcription model name",
						Value: transcription.DefaultModel,
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Transcription language hint (e.g. en)",
					},
				},
			},
			{
				Name:      "enrich",
				Usage:     "Extract structured insights from a transcript JSON file",
				ArgsUsage: "<transcript-file>",
				Action:    enrichCommand,
				Flags:     aiFlags(),
			},
			{
				Name:      "ingest",
				Usage:     "Run the full pipeline for a feed: download, transcribe, enrich, store",
				ArgsUsage: "<feed-url>",
				Action:    ingestCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "audio-dir",
						Usage: "Directory to store downloaded audio (default: alongside the database)",
					},
					&cli.IntFlag{
						Name:  "max-episodes",
						Usage: "Limit the number of episodes ingested (0 = all)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Episodes processed in parallel",
						Value: 5,
					},
				}, aiFlags()...),
			},
			{
				Name:   "episodes",
				Usage:  "List stored episodes, most recent first",
				Action: episodesCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum episodes to list (0 = all)",
						Value: 20,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search stored insights",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict to one category (themes, learnings, strategies)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum hits per category",
						Value: 5,
					},
				}, aiFlags()...),
			},
			{
				Name:   "serve",
				Usage:  "Serve episodes and search over HTTP",
				Action: serveCommand,
				Flags: append([]cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "bind",
						Usage: "Address to listen on",
						Value: "127.0.0.1:8080",
					},
				}, aiFlags()...),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all insight records with new embeddings",
				Action: reembedCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
		EnvVars:  []string{"PONDEROSA_DB"},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "chat-host",
			Usage:   "Chat/enrichment service host URL",
			EnvVars: []string{"PONDEROSA_CHAT_HOST"},
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Chat model for enrichment",
			EnvVars: []string{"PONDEROSA_CHAT_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			EnvVars: []string{"PONDEROSA_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			EnvVars: []string{"PONDEROSA_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for hosted AI services",
			EnvVars: []string{"PONDEROSA_API_KEY"},
		},
	}
}

// aiConfigFromFlags builds an AI config from defaults plus whichever flags
// were set.
func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	var opts []ai.ConfigOption
	if host := c.String("chat-host"); host != "" {
		opts = append(opts, ai.WithChatHost(host))
	}
	if model := c.String("chat-model"); model != "" {
		opts = append(opts, ai.WithChatModel(model))
	}
	if host := c.String("embedding-host"); host != "" {
		opts = append(opts, ai.WithEmbeddingHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		opts = append(opts, ai.WithEmbeddingModel(model))
	}
	if key := c.String("api-key"); key != "" {
		opts = append(opts, ai.WithAPIKey(key))
	}

	config := ai.NewConfig(opts...)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return config, nil
}

func feedURLArg(c *cli.Context) (string, error) {
	url := c.Args().First()
	if url == "" {
		return "", fmt.Errorf("feed URL argument is required")
	}
	return url, nil
}

func openDatabase(c *cli.Context) (*ponderosa.Database, error) {
	config, err := aiConfigFromFlags(c)
	if err != nil {
		return nil, err
	}

	var opts []ponderosa.DatabaseOption
	opts = append(opts, ponderosa.WithAIConfig(config))
	if dir := c.String("audio-dir"); dir != "" {
		opts = append(opts, ponderosa.WithAudioDir(dir))
	}
	return ponderosa.NewDatabase(c.String("db"), opts...)
}

func parseFeedCommand(c *cli.Context) error {
	url, err := feedURLArg(c)
	if err != nil {
		return err
	}

	parser := ingestion.NewFeedParser(ingestion.WithMaxEpisodes(c.Int("max-episodes")))
	feed, err := parser.ParseURL(c.Context, url)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	fmt.Printf("%s (%d episodes)\n", feed.Title, len(feed.Episodes))
	if feed.Author != "" {
		fmt.Printf("by %s\n", feed.Author)
	}
	fmt.Println()
	for _, episode := range feed.Episodes {
		fmt.Printf("%s  %s  [%s, %ds]\n",
			episode.PublishedAt.Format("2006-01-02"),
			episode.Title,
			episode.AudioFormat,
			episode.DurationSecs)
	}
	return nil
}

func downloadCommand(c *cli.Context) error {
	url, err := feedURLArg(c)
	if err != nil {
		return err
	}

	parser := ingestion.NewFeedParser(ingestion.WithMaxEpisodes(c.Int("max-episodes")))
	feed, err := parser.ParseURL(c.Context, url)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	downloader := ingestion.NewAudioDownloader(c.String("audio-dir"))
	for _, episode := range feed.Episodes {
		path, err := downloader.DownloadEpisode(c.Context, episode)
		if err != nil {
			slog.Error("download failed", "episode", episode.Title, "err", err)
			continue
		}
		fmt.Println(path)
	}
	return nil
}

func transcribeCommand(c *cli.Context) error {
	audioPath := c.Args().First()
	if audioPath == "" {
		return fmt.Errorf("audio file argument is required")
	}

	opts := []transcription.Option{
		transcription.WithHost(c.String("whisper-host")),
		transcription.WithModel(c.String("whisper-model")),
	}
	if language := c.String("language"); language != "" {
		opts = append(opts, transcription.WithLanguage(language))
	}

	transcriber := transcription.NewTranscriber(opts...)
	transcript, err := transcriber.TranscribeFile(c.Context, audioPath)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}

	outPath := transcription.TranscriptPath(audioPath)
	if err := transcription.SaveTranscript(outPath, transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	fmt.Println(outPath)
	return nil
}

func enrichCommand(c *cli.Context) error {
	transcriptPath := c.Args().First()
	if transcriptPath == "" {
		return fmt.Errorf("transcript file argument is required")
	}

	config, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	model, err := openai.NewChatModel(config)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}

	enricher, err := enrichment.NewEnricher(model)
	if err != nil {
		return err
	}

	result, err := enricher.EnrichFile(c.Context, transcriptPath)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	return printJSON(result)
}

func ingestCommand(c *cli.Context) error {
	url, err := feedURLArg(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	parser := ingestion.NewFeedParser(ingestion.WithMaxEpisodes(c.Int("max-episodes")))
	feed, err := parser.ParseURL(c.Context, url)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	pipeline, err := db.NewIngestionPipeline(ingestion.WithConcurrency(c.Int("concurrency")))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	report, err := pipeline.IngestFeed(c.Context, feed)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Feed: %s\n", feed.Title)
	fmt.Printf("New episodes: %d\n", report.Added)
	fmt.Printf("Processed:    %d\n", report.Processed)
	fmt.Printf("Failed:       %d\n", report.Failed)
	return nil
}

func episodesCommand(c *cli.Context) error {
	db, err := openDatabaseWithoutAI(c)
	if err != nil {
		return err
	}
	defer db.Close()

	episodes, err := db.EpisodeRepository().ListEpisodes(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	for _, episode := range episodes {
		fmt.Printf("%s  %s  %s\n",
			episode.HexID(),
			episode.PublishedAt.Format("2006-01-02"),
			episode.Title)
	}
	return nil
}

// openDatabaseWithoutAI opens the database with default AI settings, for
// commands that never call a model.
func openDatabaseWithoutAI(c *cli.Context) (*ponderosa.Database, error) {
	return ponderosa.NewDatabase(c.String("db"))
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	limit := c.Int("limit")

	if name := c.String("category"); name != "" {
		category, ok := core.ParseCategory(name)
		if !ok {
			return fmt.Errorf("unknown category %q: must be one of themes, learnings, strategies", name)
		}
		results, err := searcher.SearchCategory(c.Context, category, query, limit)
		if err != nil {
			return err
		}
		printResults(string(category), results)
		return nil
	}

	all, err := searcher.SearchAll(c.Context, query, limit)
	if err != nil {
		return err
	}
	for _, category := range core.Categories {
		printResults(string(category), all[category])
	}
	return nil
}

func printResults(category string, results []*core.SearchResult) {
	fmt.Printf("%s (%d hits)\n", category, len(results))
	for i, hit := range results {
		fmt.Printf("  %d: %s [%0.3f]\n     %s\n", i+1, hit.Record.Name, hit.Score, hit.Record.EpisodeTitle)
	}
}

func serveCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	server, err := api.NewServer(c.String("bind"), db.EpisodeRepository(), searcher)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	server.Stop()
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	// Validate flags
	dbPath := c.String("db")
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}

	// Open database
	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewInsightRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	// Create AI config
	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)

	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	// Create embedder
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	// Create reembedding config
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	// Validate config
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	// Create reembedder
	reembedder := reembed.NewReembedder(repo, embedder, reembedConfig, os.Stderr)

	// Run reembedding
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
