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

// ContentTaggerContent is the structured output of the ContentTagger
// analyzer: 1-7 short, Title Case, deduplicated tags.
type ContentTaggerContent struct {
	Tags []string `json:"content_tags"`
}

// ContentTaggerAnalyzer assigns short content tags (spec.md §4.4,
// invariant 7 of §8).
type ContentTaggerAnalyzer struct {
	base
}

func NewContentTagger(prompts *promptstore.Store, llm *llmclient.Client) *ContentTaggerAnalyzer {
	return &ContentTaggerAnalyzer{base: newBase(ContentTagger, prompts, llm, false, 6000)}
}

func (a *ContentTaggerAnalyzer) Kind() Kind { return ContentTagger }

func (a *ContentTaggerAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: ContentTagger, Attribution: attr, Failed: true}
	}

	tags := normalizeContentTags(parseTags(text))
	subscore := 40
	if n := len(tags); n > 0 && n <= 7 {
		subscore = 70 + n*4
		if subscore > 100 {
			subscore = 100
		}
	}

	return Result{
		Kind:            ContentTagger,
		Content:         ContentTaggerContent{Tags: tags},
		RawText:         text,
		QualitySubscore: subscore,
		Attribution:     attr,
	}
}

func parseTags(text string) []string {
	if raw, ok := parseutil.ExtractJSON(text); ok {
		var c ContentTaggerContent
		if err := json.Unmarshal(raw, &c); err == nil && len(c.Tags) > 0 {
			return c.Tags
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
	}
	// Fall back to comma/newline-separated raw text rather than discarding
	// a usable answer the model didn't wrap in JSON.
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' }) {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeContentTags enforces invariant 7 of spec.md §8: 1-7 tags,
// each <=50 chars and <=4 words, Title Case, deduplicated, ordered by
// the model's original (decreasing relevance) order.
func normalizeContentTags(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if len(t) > 50 {
			t = t[:50]
		}
		words := strings.Fields(t)
		if len(words) > 4 {
			words = words[:4]
		}
		t = strings.Join(words, " ")
		t = titleCase(t)

		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if len(out) == 7 {
			break
		}
	}
	if len(out) == 0 {
		out = []string{"General"}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r[0]) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
