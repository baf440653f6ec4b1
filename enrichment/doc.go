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


// Package enrichment turns podcast transcripts into structured insights.
//
// A transcript is split into overlapping chunks at sentence boundaries,
// each chunk is sent to a chat model with a fixed extraction prompt, and
// multi-chunk results are consolidated with a final merge call. Every model
// response is parsed and schema-validated; failures are retried with the
// identical prompt up to a configurable budget.
package enrichment
