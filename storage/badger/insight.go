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
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/ponderosa/core"
	"github.com/poiesic/ponderosa/storage"
)

// InsightRepository implements storage.InsightRepository for BadgerDB.
type InsightRepository struct {
	backend *Backend
}

var _ storage.InsightRepository = (*InsightRepository)(nil)

// NewInsightRepository creates a new InsightRepository.
func NewInsightRepository(backend *Backend) (*InsightRepository, error) {
	return &InsightRepository{
		backend: backend,
	}, nil
}

// Close releases resources. InsightRepository has no resources to release.
func (r *InsightRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *InsightRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindSimilar delegates to the backend.
func (r *InsightRepository) FindSimilar(ctx context.Context, category core.InsightCategory, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, category, vector, minSimilarity, limit)
}

// AddInsightRecords adds one or more insight records to storage.
// Existing records with the same content-based ID are overwritten, which
// makes re-ingesting an episode idempotent.
func (r *InsightRepository) AddInsightRecords(ctx context.Context, records ...*core.InsightRecord) ([]*core.InsightRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			// Use content-based ID if not set
			if record.Id == 0 {
				record.Id = core.IDFromContent(record.Tuple())
			}

			key := makeInsightKey(record.Id)

			// Clean up index entries of a previous version whose keywords
			// may have changed
			old, err := readInsightRecord(tx, key)
			if err != nil {
				return err
			}
			if old != nil {
				if err := r.deleteKeywordIndex(tx, old); err != nil {
					return err
				}
			}

			record.UpdatedAt = time.Now().UTC()
			if record.InsertedAt.IsZero() {
				record.InsertedAt = record.UpdatedAt
			}

			// Store primary record
			value := storage.MarshalInsightRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update keyword index
			if err := r.updateKeywordIndex(tx, record); err != nil {
				return err
			}

			// Update episode index
			episodeKey := makeInsightEpisodeKey(record.EpisodeId, record.Id)
			if err := tx.Set(episodeKey, storage.MarshalID(record.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// DeleteInsightRecords removes insight records by their IDs.
func (r *InsightRepository) DeleteInsightRecords(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeInsightKey(id)

			// Read record to get metadata for index cleanup
			record, err := readInsightRecord(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				return storage.ErrNotFound
			}

			if err := r.deleteKeywordIndex(tx, record); err != nil {
				return err
			}

			episodeKey := makeInsightEpisodeKey(record.EpisodeId, record.Id)
			if err := tx.Delete(episodeKey); err != nil {
				return err
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetInsightRecord retrieves a single insight record by ID.
func (r *InsightRepository) GetInsightRecord(ctx context.Context, id core.ID) (*core.InsightRecord, error) {
	var result *core.InsightRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeInsightKey(id)
		var err error
		result, err = readInsightRecord(tx, key)
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

// GetInsightRecords retrieves multiple insight records by their IDs.
func (r *InsightRepository) GetInsightRecords(ctx context.Context, ids ...core.ID) ([]*core.InsightRecord, error) {
	var result []*core.InsightRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeInsightKey(id)
			record, err := readInsightRecord(tx, key)
			if err != nil {
				return err
			}
			if record != nil {
				result = append(result, record)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetInsightsByEpisode retrieves all insight records extracted from an episode.
func (r *InsightRepository) GetInsightsByEpisode(ctx context.Context, episodeID core.ID) ([]*core.InsightRecord, error) {
	var results []*core.InsightRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialInsightEpisodeKey(episodeID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var recordID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			record, err := readInsightRecord(tx, makeInsightKey(recordID))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}

// ListInsightRecords retrieves every insight record in storage.
func (r *InsightRepository) ListInsightRecords(ctx context.Context) ([]*core.InsightRecord, error) {
	var results []*core.InsightRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(insightRecordPrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var record *core.InsightRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalInsightRecord(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, record)
		}
		return nil
	}, false)

	return results, err
}

// GetInsightsByKeyword retrieves insight records whose keywords contain an
// exact, case-insensitive match. An empty category matches all categories.
func (r *InsightRepository) GetInsightsByKeyword(ctx context.Context, category core.InsightCategory, keyword string) ([]*core.InsightRecord, error) {
	keyword = normalizeKeyword(keyword)
	if keyword == "" {
		return nil, storage.ErrInvalidQuery
	}

	categories := core.Categories
	if category != "" {
		categories = []core.InsightCategory{category}
	}

	var results []*core.InsightRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, cat := range categories {
			startKey := makePartialInsightKeywordKey(cat, keyword)
			iter := tx.NewIterator(badger.DefaultIteratorOptions)

			for iter.Seek(startKey); iter.Valid(); iter.Next() {
				key := iter.Item().Key()
				if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
					break
				}

				var recordID core.ID
				if err := iter.Item().Value(func(val []byte) error {
					var err error
					recordID, err = storage.UnmarshalID(val)
					return err
				}); err != nil {
					iter.Close()
					return err
				}

				record, err := readInsightRecord(tx, makeInsightKey(recordID))
				if err != nil {
					iter.Close()
					return err
				}
				if record != nil {
					results = append(results, record)
				}
			}
			iter.Close()
		}
		return nil
	}, false)

	return results, err
}

// Helper methods

// readInsightRecord reads an insight record from the transaction.
func readInsightRecord(tx *badger.Txn, key []byte) (*core.InsightRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.InsightRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalInsightRecord(val)
		return unmarshalErr
	})
	return record, err
}

// updateKeywordIndex adds keyword index entries for a record.
func (r *InsightRepository) updateKeywordIndex(tx *badger.Txn, record *core.InsightRecord) error {
	for _, keyword := range record.Keywords {
		keyword = normalizeKeyword(keyword)
		if keyword == "" {
			continue
		}
		key := makeInsightKeywordKey(core.InsightCategory(record.Category), keyword, record.Id)
		if err := tx.Set(key, storage.MarshalID(record.Id)); err != nil {
			return err
		}
	}
	return nil
}

// deleteKeywordIndex removes keyword index entries for a record.
func (r *InsightRepository) deleteKeywordIndex(tx *badger.Txn, record *core.InsightRecord) error {
	for _, keyword := range record.Keywords {
		keyword = normalizeKeyword(keyword)
		if keyword == "" {
			continue
		}
		key := makeInsightKeywordKey(core.InsightCategory(record.Category), keyword, record.Id)
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// normalizeKeyword lowercases and trims a keyword for index storage and lookup.
func normalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}
