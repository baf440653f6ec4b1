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


package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/poiesic/ponderosa/core"
)

const (
	// DefaultHost is an OpenAI-compatible whisper server.
	DefaultHost = "http://localhost:8000/v1"

	// DefaultModel is the transcription model name sent in the form body.
	DefaultModel = "whisper-1"

	// DefaultUploadTimeout bounds a single upload plus server-side decode.
	// Podcast episodes run long, so this is generous.
	DefaultUploadTimeout = 30 * time.Minute

	// DefaultMaxElapsedTime bounds the whole retry schedule for one file.
	DefaultMaxElapsedTime = 2 * time.Hour
)

// Transcriber converts audio files to transcripts by posting them to an
// OpenAI-compatible /audio/transcriptions endpoint with verbose_json output.
//
// The HTTP client is created lazily on first use so a Transcriber can be
// constructed in configurations where transcription never runs.
type Transcriber struct {
	host           string
	model          string
	language       string
	apiKey         string
	uploadTimeout  time.Duration
	maxElapsedTime time.Duration
	logger         *slog.Logger

	initOnce sync.Once
	client   *http.Client
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithHost sets the server base URL. A missing /v1 suffix is appended.
func WithHost(host string) Option {
	return func(t *Transcriber) {
		if host != "" {
			t.host = host
		}
	}
}

// WithModel sets the transcription model name.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		if model != "" {
			t.model = model
		}
	}
}

// WithLanguage pins the spoken language instead of letting the server
// auto-detect it.
func WithLanguage(language string) Option {
	return func(t *Transcriber) {
		t.language = language
	}
}

// WithAPIKey sets the bearer token. Local servers typically need none.
func WithAPIKey(key string) Option {
	return func(t *Transcriber) {
		t.apiKey = key
	}
}

// WithUploadTimeout sets the per-attempt HTTP timeout.
func WithUploadTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		if d > 0 {
			t.uploadTimeout = d
		}
	}
}

// WithMaxElapsedTime bounds the total retry schedule for one file.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(t *Transcriber) {
		if d > 0 {
			t.maxElapsedTime = d
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcriber) {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger.With("component", "transcriber")
	}
}

// NewTranscriber creates a transcriber for an OpenAI-compatible server.
func NewTranscriber(opts ...Option) *Transcriber {
	t := &Transcriber{
		host:           DefaultHost,
		model:          DefaultModel,
		uploadTimeout:  DefaultUploadTimeout,
		maxElapsedTime: DefaultMaxElapsedTime,
		logger:         slog.Default().With("component", "transcriber"),
	}
	for _, opt := range opts {
		opt(t)
	}

	if !strings.HasSuffix(t.host, "/v1") {
		t.host += "/v1"
	}

	return t
}

// handle returns the lazily initialized HTTP client.
func (t *Transcriber) handle() *http.Client {
	t.initOnce.Do(func() {
		t.client = &http.Client{Timeout: t.uploadTimeout}
	})
	return t.client
}

// TranscribeFile uploads an audio file and returns its transcript.
//
// Transient failures (network errors, 5xx, 429) are retried with exponential
// backoff; other client errors abort immediately. The file is reopened on
// every attempt because the multipart body cannot be replayed.
func (t *Transcriber) TranscribeFile(ctx context.Context, audioPath string) (*core.Transcript, error) {
	if audioPath == "" {
		return nil, ErrEmptyAudioPath
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}

	t.logger.Info("transcribing audio", "path", audioPath, "model", t.model)

	var transcript *core.Transcript
	operation := func() error {
		result, err := t.attempt(ctx, audioPath)
		if err != nil {
			return err
		}
		transcript = result
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = t.maxElapsedTime
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	t.logger.Info("transcription complete",
		"path", audioPath,
		"chars", len(transcript.Text),
		"segments", len(transcript.Segments))

	return transcript, nil
}

// attempt performs one upload and decode.
func (t *Transcriber) attempt(ctx context.Context, audioPath string) (*core.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := t.writeForm(mw, f, audioPath); err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.host+"/audio/transcriptions", &body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if t.apiKey != "" && t.apiKey != "none" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.handle().Do(req)
	if err != nil {
		t.logger.Warn("transcription request failed", "path", audioPath, "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("server returned %d: %s", resp.StatusCode, respBody)
		if retryableStatus(resp.StatusCode) {
			t.logger.Warn("transcription attempt failed", "path", audioPath, "status", resp.StatusCode)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var transcript core.Transcript
	if err := json.NewDecoder(resp.Body).Decode(&transcript); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding response: %w", err))
	}

	return &transcript, nil
}

// writeForm writes the verbose_json transcription form: model, optional
// language, response format, and the audio file part.
func (t *Transcriber) writeForm(mw *multipart.Writer, f *os.File, audioPath string) error {
	if err := mw.WriteField("model", t.model); err != nil {
		return err
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return err
	}
	if t.language != "" {
		if err := mw.WriteField("language", t.language); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(audioPath)))
	h.Set("Content-Type", mimeFromExt(filepath.Ext(audioPath)))
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}

	return mw.Close()
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// mimeFromExt returns the MIME type for common podcast audio extensions.
func mimeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mp3"
	case ".m4a":
		return "audio/m4a"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

// TranscriptPath returns the transcript file path for an audio file,
// replacing its extension with .json.
func TranscriptPath(audioPath string) string {
	ext := filepath.Ext(audioPath)
	return strings.TrimSuffix(audioPath, ext) + ".json"
}

// SaveTranscript writes a transcript as JSON next to the audio it came from.
func SaveTranscript(path string, transcript *core.Transcript) error {
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing transcript: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
