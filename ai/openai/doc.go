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


// Package openai provides ai.Provider implementations backed by
// OpenAI-compatible APIs via langchaingo.
//
// Any service speaking the OpenAI wire protocol works: hosted APIs
// (Perplexity, OpenAI) as well as local servers (Ollama, LocalAI, vLLM).
// The chat client is initialized lazily on first use; the embedding client
// is constructed eagerly since it is cheap.
//
// Chat calls can be rate limited via ai.WithRequestsPerMinute, which matters
// for hosted APIs with strict per-minute quotas.
package openai
