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


// Package mock provides test doubles for the ai package interfaces.
//
// MockChatModel supports both a FIFO queue of canned responses (for
// retry-sequence tests such as malformed-then-valid) and full behavior
// injection via CompleteFunc. Every invocation is recorded in Calls so
// tests can assert prompt stability across retry attempts.
//
// MockEmbedder produces deterministic unit vectors derived from the input
// text hash, so similarity-dependent tests are reproducible without any
// embedding service.
package mock
