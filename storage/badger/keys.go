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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/ponderosa/core"
)

// Key prefixes for different data types. Prefixes are chosen so no prefix
// is a prefix of another, which keeps iterator scans from crossing types.
const (
	episodeRecordPrefix  = "eprec"
	episodeDatePrefix    = "epdate"
	enrichmentPrefix     = "epenrich"
	insightRecordPrefix  = "insrec"
	insightKeywordPrefix = "inskw"
	insightEpisodePrefix = "insep"
)

// makeEpisodeKey generates a key for an episode by ID.
func makeEpisodeKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", episodeRecordPrefix, id))
}

// makeEpisodeDateKey generates a composite key for the publication date index.
// Format: prefix:timestamp:id
func makeEpisodeDateKey(publishedAt time.Time, id core.ID) []byte {
	prefix := episodeDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(publishedAt.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialEpisodeDateKey generates a partial key for date range scans.
// Format: prefix:timestamp
func makePartialEpisodeDateKey(timestamp time.Time) []byte {
	prefix := episodeDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeEnrichmentKey generates a key for an episode's enrichment result.
func makeEnrichmentKey(episodeID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", enrichmentPrefix, episodeID))
}

// makeInsightKey generates a key for an insight record by ID.
func makeInsightKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", insightRecordPrefix, id))
}

// makeInsightKeywordKey generates a composite key for the keyword index.
// Format: prefix:category:keyword\x00:id
// The NUL byte terminates the keyword so prefix scans for "go" never match
// records keyed under "golang".
func makeInsightKeywordKey(category core.InsightCategory, keyword string, id core.ID) []byte {
	prefix := insightKeywordPrefix + ":" + string(category) + ":" + keyword + "\x00"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialInsightKeywordKey generates a partial key for keyword lookups.
// Format: prefix:category:keyword\x00
func makePartialInsightKeywordKey(category core.InsightCategory, keyword string) []byte {
	return []byte(insightKeywordPrefix + ":" + string(category) + ":" + keyword + "\x00")
}

// makeInsightEpisodeKey generates a composite key for the episode index.
// Format: prefix:episodeID:insightID
func makeInsightEpisodeKey(episodeID, insightID core.ID) []byte {
	prefix := insightEpisodePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(episodeID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(insightID))
	return buf
}

// makePartialInsightEpisodeKey generates a partial key for episode lookups.
// Format: prefix:episodeID
func makePartialInsightEpisodeKey(episodeID core.ID) []byte {
	prefix := insightEpisodePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(episodeID))
	return buf
}
