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


package storage

import (
	"github.com/poiesic/ponderosa/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	var id core.ID
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalEpisode serializes an Episode to bytes.
func MarshalEpisode(episode *core.Episode) []byte {
	buf := make([]byte, core.EpisodeMUS.Size(*episode))
	core.EpisodeMUS.Marshal(*episode, buf)
	return buf
}

// UnmarshalEpisode deserializes an Episode from bytes.
func UnmarshalEpisode(data []byte) (*core.Episode, error) {
	episode, _, err := core.EpisodeMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &episode, nil
}

// MarshalInsightRecord serializes an InsightRecord to bytes.
func MarshalInsightRecord(record *core.InsightRecord) []byte {
	buf := make([]byte, core.InsightRecordMUS.Size(*record))
	core.InsightRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalInsightRecord deserializes an InsightRecord from bytes.
func UnmarshalInsightRecord(data []byte) (*core.InsightRecord, error) {
	record, _, err := core.InsightRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
