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
	"regexp"
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
)

// InsightsContent is the structured output of the Insights analyzer: a
// bulleted list of distinct, non-obvious observations.
type InsightsContent struct {
	Bullets []string `json:"bullets"`
}

// InsightsAnalyzer is one of the two analyzers (MarketAnalyzer is the
// other) whose template may enable the web-search tool-augmented
// completion path (spec.md §4.4).
type InsightsAnalyzer struct {
	base
}

func NewInsights(prompts *promptstore.Store, llm *llmclient.Client, webSearch bool) *InsightsAnalyzer {
	return &InsightsAnalyzer{base: newBase(Insights, prompts, llm, webSearch, 10000)}
}

func (a *InsightsAnalyzer) Kind() Kind { return Insights }

func (a *InsightsAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: Insights, Attribution: attr, Failed: true}
	}

	bullets := splitBullets(text)
	return Result{
		Kind:            Insights,
		Content:         InsightsContent{Bullets: bullets},
		RawText:         text,
		QualitySubscore: scoreInsights(bullets),
		Attribution:     attr,
	}
}

var bulletLineRe = regexp.MustCompile(`(?m)^\s*(?:[-*]|\d+[.)])\s+(.*)$`)

func splitBullets(text string) []string {
	matches := bulletLineRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		var out []string
		for _, line := range strings.Split(text, "\n") {
			if t := strings.TrimSpace(line); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// imperativeRe approximates "imperative-voice sentence" with a simple
// verb-first heuristic: the sentence's first word is a common
// imperative/action verb.
var imperativeRe = regexp.MustCompile(`(?i)^(consider|review|watch|monitor|investigate|verify|confirm|expect|prepare|avoid|prioritize|track|assess|evaluate|plan)\b`)

func scoreActionability(bullets []string) int {
	count := 0
	for _, b := range bullets {
		if imperativeRe.MatchString(strings.TrimSpace(b)) {
			count++
		}
	}
	if count > 3 {
		count = 3
	}
	return count * 10
}

func scoreInsights(bullets []string) int {
	if len(bullets) == 0 {
		return 0
	}
	score := 40
	if len(bullets) >= 3 {
		score += 30
	} else {
		score += len(bullets) * 10
	}
	score += scoreActionability(bullets)
	if score > 100 {
		score = 100
	}
	return score
}
