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

import "fmt"

// ValidateInsight validates an Insight according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - RelevanceScore must lie in [0.0, 1.0]; out-of-range scores are
//     rejected, never clamped
//
// NOT validated:
//   - Keywords (may be empty)
//   - Description (may be empty)
func ValidateInsight(insight *Insight) error {
	if insight == nil {
		return fmt.Errorf("%w: insight is nil", ErrInvalidInsight)
	}

	if insight.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInsight, ErrEmptyInsightName)
	}

	if insight.RelevanceScore < 0.0 || insight.RelevanceScore > 1.0 {
		return fmt.Errorf("%w: %w: got %v", ErrInvalidInsight, ErrScoreOutOfRange, insight.RelevanceScore)
	}

	return nil
}

// ValidateEnrichmentResult validates an EnrichmentResult according to domain rules.
//
// Every insight in every category must pass ValidateInsight. The 3-7 items
// per category guideline is a prompt contract, not a validation rule: any
// item count is accepted.
func ValidateEnrichmentResult(result *EnrichmentResult) error {
	if result == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidEnrichmentResult)
	}

	for _, category := range Categories {
		for i, insight := range result.Category(category) {
			if err := ValidateInsight(&insight); err != nil {
				return fmt.Errorf("%w: %s[%d]: %w", ErrInvalidEnrichmentResult, category, i, err)
			}
		}
	}

	return nil
}

// ValidateEpisode validates an Episode according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - AudioURL must not be empty
//
// NOT validated (populated by processors):
//   - ID (0 is valid before ingestion assigns one)
//   - Timestamps
func ValidateEpisode(episode *Episode) error {
	if episode == nil {
		return fmt.Errorf("%w: episode is nil", ErrInvalidEpisode)
	}

	if episode.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyEpisodeTitle)
	}

	if episode.AudioURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEpisode, ErrEmptyAudioURL)
	}

	return nil
}
