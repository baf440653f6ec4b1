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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/poiesic/ponderosa/core"
)

const (
	// defaultDownloadAttempts bounds retries per episode: one initial
	// attempt plus two retries.
	defaultDownloadAttempts = 3

	// defaultDownloadTimeout bounds one full audio download.
	defaultDownloadTimeout = 15 * time.Minute
)

// Downloader fetches episode audio to local files.
type Downloader interface {
	// DownloadEpisode downloads the episode audio and returns the local
	// file path. Already-downloaded episodes are not fetched again.
	DownloadEpisode(ctx context.Context, episode *core.Episode) (string, error)
}

// AudioDownloader implements Downloader with streaming HTTP GET and
// exponential backoff retry.
type AudioDownloader struct {
	dir      string
	attempts int
	client   *http.Client
	logger   *slog.Logger
}

var _ Downloader = (*AudioDownloader)(nil)

// DownloaderOption configures an AudioDownloader.
type DownloaderOption func(*AudioDownloader)

// WithDownloadAttempts sets the total attempt budget per episode.
func WithDownloadAttempts(attempts int) DownloaderOption {
	return func(d *AudioDownloader) {
		if attempts > 0 {
			d.attempts = attempts
		}
	}
}

// WithDownloadTimeout sets the per-attempt HTTP timeout.
func WithDownloadTimeout(timeout time.Duration) DownloaderOption {
	return func(d *AudioDownloader) {
		if timeout > 0 {
			d.client.Timeout = timeout
		}
	}
}

// WithDownloaderLogger sets a custom logger.
// Default is slog.Default().
func WithDownloaderLogger(logger *slog.Logger) DownloaderOption {
	return func(d *AudioDownloader) {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "downloader")
	}
}

// NewAudioDownloader creates a downloader that stores audio under dir.
func NewAudioDownloader(dir string, opts ...DownloaderOption) *AudioDownloader {
	d := &AudioDownloader{
		dir:      dir,
		attempts: defaultDownloadAttempts,
		client:   &http.Client{Timeout: defaultDownloadTimeout},
		logger:   slog.Default().With("component", "downloader"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadEpisode downloads episode audio, skipping files already present.
func (d *AudioDownloader) DownloadEpisode(ctx context.Context, episode *core.Episode) (string, error) {
	if episode.AudioURL == "" {
		return "", core.ErrEmptyAudioURL
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(d.dir, episode.AudioFilename())
	if _, err := os.Stat(path); err == nil {
		d.logger.Info("audio already downloaded", "path", path)
		return path, nil
	}

	d.logger.Info("downloading audio", "url", episode.AudioURL, "path", path)

	operation := func() error {
		return d.fetch(ctx, episode.AudioURL, path)
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.attempts-1))
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	return path, nil
}

// fetch performs one streaming download to a temp file, renaming it into
// place only on success so partial downloads never look complete.
func (d *AudioDownloader) fetch(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("download attempt failed", "url", url, "err", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("server returned %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			d.logger.Warn("download attempt failed", "url", url, "status", resp.StatusCode)
			return err
		}
		return backoff.Permanent(err)
	}

	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return backoff.Permanent(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
