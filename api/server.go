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


package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/search"
	"github.com/poiesic/ponderosa/storage"
)

// defaultSearchLimit is used when the limit query parameter is absent.
const defaultSearchLimit = 10

// Server exposes episodes and insight search over HTTP.
type Server struct {
	bind        string
	episodeRepo storage.EpisodeRepository
	searcher    *search.Searcher
	logger      *slog.Logger

	listener net.Listener
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "api")
	}
}

// NewServer creates an HTTP server bound to the given address.
func NewServer(bind string, episodeRepo storage.EpisodeRepository, searcher *search.Searcher, opts ...Option) (*Server, error) {
	if episodeRepo == nil {
		return nil, ErrEpisodeRepositoryRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}

	s := &Server{
		bind:        bind,
		episodeRepo: episodeRepo,
		searcher:    searcher,
		logger:      slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /episodes", s.handleListEpisodes)
	mux.HandleFunc("GET /episodes/{id}", s.handleGetEpisode)
	mux.HandleFunc("GET /episodes/{id}/enrichment", s.handleGetEnrichment)
	mux.HandleFunc("GET /search", s.handleSearchAll)
	mux.HandleFunc("GET /search/{category}", s.handleSearchCategory)
	return mux
}

// Start begins serving in the background. The server shuts down when ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", "address", listener.Addr().String())
	return nil
}

// Stop shuts the server down, waiting up to five seconds for in-flight
// requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

type episodePayload struct {
	ID            string    `json:"id"`
	Guid          string    `json:"guid"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	AudioURL      string    `json:"audio_url"`
	AudioFormat   string    `json:"audio_format"`
	DurationSecs  int       `json:"duration_secs,omitempty"`
	Season        int       `json:"season,omitempty"`
	EpisodeNumber int       `json:"episode_number,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
}

type insightPayload struct {
	ID           string   `json:"id"`
	EpisodeID    string   `json:"episode_id"`
	EpisodeTitle string   `json:"episode_title"`
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Document     string   `json:"document"`
	Keywords     []string `json:"keywords,omitempty"`
	Score        float32  `json:"score"`
}

func episodeToPayload(episode *core.Episode) episodePayload {
	return episodePayload{
		ID:            episode.HexID(),
		Guid:          episode.Guid,
		Title:         episode.Title,
		Description:   episode.Description,
		AudioURL:      episode.AudioURL,
		AudioFormat:   episode.AudioFormat,
		DurationSecs:  episode.DurationSecs,
		Season:        episode.Season,
		EpisodeNumber: episode.EpisodeNumber,
		PublishedAt:   episode.PublishedAt,
	}
}

func resultsToPayload(results []*core.SearchResult) []insightPayload {
	payload := make([]insightPayload, 0, len(results))
	for _, result := range results {
		payload = append(payload, insightPayload{
			ID:           result.Record.Id.Hex(),
			EpisodeID:    result.Record.EpisodeId.Hex(),
			EpisodeTitle: result.Record.EpisodeTitle,
			Category:     result.Record.Category,
			Name:         result.Record.Name,
			Document:     result.Record.Document,
			Keywords:     result.Record.Keywords,
			Score:        result.Score,
		})
	}
	return payload
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	episodes, err := s.episodeRepo.ListEpisodes(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make([]episodePayload, 0, len(episodes))
	for _, episode := range episodes {
		payload = append(payload, episodeToPayload(episode))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"episodes": payload})
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.episodeFromPath(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, episodeToPayload(episode))
}

func (s *Server) handleGetEnrichment(w http.ResponseWriter, r *http.Request) {
	episode, ok := s.episodeFromPath(w, r)
	if !ok {
		return
	}

	result, err := s.episodeRepo.GetEnrichment(r.Context(), episode.Id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "enrichment not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearchAll(w http.ResponseWriter, r *http.Request) {
	query, limit, ok := s.searchParams(w, r)
	if !ok {
		return
	}

	results, err := s.searcher.SearchAll(r.Context(), query, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	payload := make(map[string][]insightPayload, len(results))
	for category, hits := range results {
		payload[string(category)] = resultsToPayload(hits)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": payload})
}

func (s *Server) handleSearchCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := core.ParseCategory(r.PathValue("category"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown category")
		return
	}

	query, limit, paramsOK := s.searchParams(w, r)
	if !paramsOK {
		return
	}

	results, err := s.searcher.SearchCategory(r.Context(), category, query, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": resultsToPayload(results)})
}

// episodeFromPath resolves the {id} path segment to a stored episode,
// writing the error response itself when it cannot.
func (s *Server) episodeFromPath(w http.ResponseWriter, r *http.Request) (*core.Episode, bool) {
	id, err := core.ParseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid episode id")
		return nil, false
	}

	episode, err := s.episodeRepo.GetEpisode(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "episode not found")
		return nil, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return episode, true
}

func (s *Server) searchParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q parameter required")
		return "", 0, false
	}

	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return "", 0, false
		}
		limit = parsed
	}
	return query, limit, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
