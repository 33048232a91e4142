// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyzer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/internal/parseutil"
	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
)

// TaggerContent is the structured output of the Tagger analyzer: two
// disjoint short lists, topical and domain.
type TaggerContent struct {
	TopicalTags []string `json:"topical_tags"`
	DomainTags  []string `json:"domain_tags"`
}

type TaggerAnalyzer struct {
	base
}

func NewTagger(prompts *promptstore.Store, llm *llmclient.Client) *TaggerAnalyzer {
	return &TaggerAnalyzer{base: newBase(Tagger, prompts, llm, false, 6000)}
}

func (a *TaggerAnalyzer) Kind() Kind { return Tagger }

func (a *TaggerAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: Tagger, Attribution: attr, Failed: true}
	}

	content := parseTaggerContent(text)
	content = makeDisjoint(content)

	score := 30
	if len(content.TopicalTags) > 0 {
		score += 35
	}
	if len(content.DomainTags) > 0 {
		score += 35
	}

	return Result{
		Kind:            Tagger,
		Content:         content,
		RawText:         text,
		QualitySubscore: score,
		Attribution:     attr,
	}
}

func parseTaggerContent(text string) TaggerContent {
	var c TaggerContent
	if raw, ok := parseutil.ExtractJSON(text); ok {
		_ = json.Unmarshal(raw, &c)
	}
	return c
}

// makeDisjoint drops any domain tag that also appears as a topical tag
// (case-insensitive), preserving topical tags' priority per spec.md
// §4.4's "two disjoint short lists" contract.
func makeDisjoint(c TaggerContent) TaggerContent {
	topical := make(map[string]bool, len(c.TopicalTags))
	for _, t := range c.TopicalTags {
		topical[strings.ToLower(strings.TrimSpace(t))] = true
	}
	var domain []string
	for _, d := range c.DomainTags {
		if !topical[strings.ToLower(strings.TrimSpace(d))] {
			domain = append(domain, d)
		}
	}
	c.DomainTags = domain
	return c
}
