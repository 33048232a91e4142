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

// SummarizerContent is the structured output of the Summarizer
// analyzer: markdown restricted to H2/H3, bullet-heavy, no raw URLs.
type SummarizerContent struct {
	Markdown string `json:"markdown"`
}

type SummarizerAnalyzer struct {
	base
}

func NewSummarizer(prompts *promptstore.Store, llm *llmclient.Client) *SummarizerAnalyzer {
	return &SummarizerAnalyzer{base: newBase(Summarizer, prompts, llm, false, 12000)}
}

func (a *SummarizerAnalyzer) Kind() Kind { return Summarizer }

func (a *SummarizerAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: Summarizer, Attribution: attr, Failed: true}
	}

	md := strings.TrimSpace(text)
	return Result{
		Kind:            Summarizer,
		Content:         SummarizerContent{Markdown: md},
		RawText:         text,
		QualitySubscore: scoreSummary(md),
		Attribution:     attr,
	}
}

var (
	headingRe   = regexp.MustCompile(`(?m)^#{2,3}\s+\S`)
	bulletRe    = regexp.MustCompile(`(?m)^\s*[-*]\s+\S`)
	rawURLRe    = regexp.MustCompile(`https?://\S+`)
)

// scoreSummary weights length within a target band, heading presence,
// and bullet discipline (spec.md §4.4 point 6).
func scoreSummary(md string) int {
	words := len(strings.Fields(md))
	score := 0

	switch {
	case words == 0:
		return 0
	case words < 40:
		score += 10
	case words <= 400:
		score += 40
	default:
		score += 20 // over budget, still usable
	}

	if headingRe.MatchString(md) {
		score += 20
	}
	bulletLines := len(bulletRe.FindAllString(md, -1))
	if bulletLines >= 2 {
		score += 30
	} else if bulletLines == 1 {
		score += 15
	}
	if !rawURLRe.MatchString(md) {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}
