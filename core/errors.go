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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidInsight indicates an Insight failed validation.
	ErrInvalidInsight = errors.New("invalid insight")

	// ErrInvalidEnrichmentResult indicates an EnrichmentResult failed validation.
	ErrInvalidEnrichmentResult = errors.New("invalid enrichment result")

	// ErrInvalidEpisode indicates an Episode failed validation.
	ErrInvalidEpisode = errors.New("invalid episode")

	// ErrEmptyInsightName indicates the insight Name field is empty.
	ErrEmptyInsightName = errors.New("insight name cannot be empty")

	// ErrScoreOutOfRange indicates a relevance score outside [0.0, 1.0].
	ErrScoreOutOfRange = errors.New("relevance score must be between 0.0 and 1.0")

	// ErrEmptyEpisodeTitle indicates the episode Title field is empty.
	ErrEmptyEpisodeTitle = errors.New("episode title cannot be empty")

	// ErrEmptyAudioURL indicates the episode AudioURL field is empty.
	ErrEmptyAudioURL = errors.New("episode audio URL cannot be empty")
)
