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


package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json fence",
			input:    "```json\n{\"a\": 1}\n```",
			expected: "{\"a\": 1}",
		},
		{
			name:     "bare fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: "{\"a\": 1}",
		},
		{
			name:     "no fence",
			input:    "{\"a\": 1}",
			expected: "{\"a\": 1}",
		},
		{
			name:     "opening fence only",
			input:    "```json\n{\"a\": 1}",
			expected: "{\"a\": 1}",
		},
		{
			name:     "fence without newline",
			input:    "```{\"a\": 1}```",
			expected: "{\"a\": 1}",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFences(tt.input))
		})
	}
}

func TestStripCodeFencesIdempotent(t *testing.T) {
	input := "```json\n{\"a\": 1}\n```"
	once := stripCodeFences(input)
	twice := stripCodeFences(once)
	assert.Equal(t, once, twice)
}

func TestStripCodeFencesPreservesInnerBytes(t *testing.T) {
	inner := "{\n  \"text\": \"has ``` inside\"\n}"
	input := "```json\n" + inner + "\n```"
	assert.Equal(t, inner, stripCodeFences(input))
}
