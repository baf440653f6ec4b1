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


package badger

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/storage"
)

// EpisodeRepository implements storage.EpisodeRepository for BadgerDB.
type EpisodeRepository struct {
	backend *Backend
}

var _ storage.EpisodeRepository = (*EpisodeRepository)(nil)

// NewEpisodeRepository creates a new EpisodeRepository.
func NewEpisodeRepository(backend *Backend) (*EpisodeRepository, error) {
	return &EpisodeRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EpisodeRepository has no resources to release.
func (r *EpisodeRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EpisodeRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEpisodes adds one or more episodes to storage.
// Episodes that already exist are skipped so repeated feed ingestion is
// idempotent.
func (r *EpisodeRepository) AddEpisodes(ctx context.Context, episodes ...*core.Episode) ([]*core.Episode, error) {
	var added []*core.Episode
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, episode := range episodes {
			// Use content-based ID if not set
			if episode.Id == 0 {
				episode.Id = episodeID(episode)
			}

			key := makeEpisodeKey(episode.Id)

			// Skip episodes already stored
			existing, err := readEpisode(tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			episode.InsertedAt = time.Now().UTC()
			episode.UpdatedAt = episode.InsertedAt

			// Store primary record
			value := storage.MarshalEpisode(episode)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update publication date index
			dateKey := makeEpisodeDateKey(episode.PublishedAt, episode.Id)
			if err := tx.Set(dateKey, storage.MarshalID(episode.Id)); err != nil {
				return err
			}

			added = append(added, episode)
		}
		return tx.Commit()
	}, true)

	return added, err
}

// UpdateEpisodes updates existing episodes.
func (r *EpisodeRepository) UpdateEpisodes(ctx context.Context, episodes ...*core.Episode) ([]*core.Episode, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, episode := range episodes {
			key := makeEpisodeKey(episode.Id)

			// Read old record to detect changes
			old, err := readEpisode(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			episode.UpdatedAt = time.Now().UTC()

			value := storage.MarshalEpisode(episode)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index if publication date changed
			if !old.PublishedAt.Equal(episode.PublishedAt) {
				oldDateKey := makeEpisodeDateKey(old.PublishedAt, old.Id)
				if err := tx.Delete(oldDateKey); err != nil {
					return err
				}
				newDateKey := makeEpisodeDateKey(episode.PublishedAt, episode.Id)
				if err := tx.Set(newDateKey, storage.MarshalID(episode.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return episodes, err
}

// GetEpisode retrieves a single episode by ID.
func (r *EpisodeRepository) GetEpisode(ctx context.Context, id core.ID) (*core.Episode, error) {
	var result *core.Episode
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEpisodeKey(id)
		var err error
		result, err = readEpisode(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEpisodes retrieves multiple episodes by their IDs.
func (r *EpisodeRepository) GetEpisodes(ctx context.Context, ids ...core.ID) ([]*core.Episode, error) {
	var result []*core.Episode
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEpisodeKey(id)
			episode, err := readEpisode(tx, key)
			if err != nil {
				return err
			}
			if episode != nil {
				result = append(result, episode)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListEpisodes retrieves up to limit episodes, most recently published first.
func (r *EpisodeRepository) ListEpisodes(ctx context.Context, limit int) ([]*core.Episode, error) {
	var results []*core.Episode
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent episodes first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialEpisodeDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))

		prefix := []byte(episodeDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}

			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			// Read the ID from the index
			var episodeID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				episodeID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			episode, err := readEpisode(tx, makeEpisodeKey(episodeID))
			if err != nil {
				return err
			}
			if episode != nil {
				results = append(results, episode)
			}
		}
		return nil
	}, false)

	return results, err
}

// StoreEnrichment persists the enrichment result for an episode as JSON,
// replacing any previous result.
func (r *EpisodeRepository) StoreEnrichment(ctx context.Context, episodeID core.ID, result *core.EnrichmentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		// The episode must exist before a result is attached to it
		episode, err := readEpisode(tx, makeEpisodeKey(episodeID))
		if err != nil {
			return err
		}
		if episode == nil {
			return storage.ErrNotFound
		}

		if err := tx.Set(makeEnrichmentKey(episodeID), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEnrichment retrieves the enrichment result for an episode.
func (r *EpisodeRepository) GetEnrichment(ctx context.Context, episodeID core.ID) (*core.EnrichmentResult, error) {
	var result *core.EnrichmentResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEnrichmentKey(episodeID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded core.EnrichmentResult
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			result = &decoded
			return nil
		})
	}, false)
	return result, err
}

// episodeID derives a stable content-based ID for an episode, preferring
// the feed GUID and falling back to the audio URL.
func episodeID(episode *core.Episode) core.ID {
	if episode.Guid != "" {
		return core.IDFromContent(episode.Guid)
	}
	return core.IDFromContent(episode.AudioURL)
}

// readEpisode reads an episode from the transaction.
func readEpisode(tx *badger.Txn, key []byte) (*core.Episode, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var episode *core.Episode
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		episode, unmarshalErr = storage.UnmarshalEpisode(val)
		return unmarshalErr
	})
	return episode, err
}
