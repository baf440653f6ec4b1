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


package search

import (
	"github.com/poiesic/ponderosa/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(ids []core.ID)
	AfterKeywordSearch(keywords []string, hits int)
	SemanticAndKeywordHit(record *core.InsightRecord)
	SemanticHit(record *core.InsightRecord)
	KeywordHit(record *core.InsightRecord)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                              {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.ID)             {}
func (n *noopMonitor) AfterKeywordSearch(_ []string, _ int)        {}
func (n *noopMonitor) SemanticAndKeywordHit(_ *core.InsightRecord) {}
func (n *noopMonitor) SemanticHit(_ *core.InsightRecord)           {}
func (n *noopMonitor) KeywordHit(_ *core.InsightRecord)            {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)               {}
