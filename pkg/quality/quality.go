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

// Package quality implements the composite quality scorer (C5): a
// heuristic 0-100 score over a document's analyzer results, plus a
// secondary proxy scorer for pages whose explicit score has since been
// lost or was never recorded.
package quality

import (
	"regexp"
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

// Indicator is the visual tier derived from the overall score.
type Indicator string

const (
	Excellent Indicator = "excellent" // 🌟
	Good      Indicator = "good"      // ✅
	Fair      Indicator = "fair"      // ⚡
	Poor      Indicator = "poor"      // ⚠️
)

// Emoji returns the tier glyph rendered by the formatter's quality
// indicator block.
func (i Indicator) Emoji() string {
	switch i {
	case Excellent:
		return "🌟"
	case Good:
		return "✅"
	case Fair:
		return "⚡"
	default:
		return "⚠️"
	}
}

// Components is the three-part breakdown of an overall score.
type Components struct {
	Relevance     int // 0-40
	Completeness  int // 0-30
	Actionability int // 0-30
}

// QualityScore is the composite quality result for one document.
type QualityScore struct {
	Overall    int
	Components Components
	Indicator  Indicator
}

func indicatorFor(overall int) Indicator {
	switch {
	case overall >= 85:
		return Excellent
	case overall >= 70:
		return Good
	case overall >= 50:
		return Fair
	default:
		return Poor
	}
}

// Compute assigns the tier and clamps overall to the sum of its parts;
// callers build a Components value and hand it here rather than
// constructing QualityScore literals directly, so the indicator can
// never drift out of sync with the numeric score.
func Compute(c Components) QualityScore {
	c.Relevance = clamp(c.Relevance, 0, 40)
	c.Completeness = clamp(c.Completeness, 0, 30)
	c.Actionability = clamp(c.Actionability, 0, 30)
	overall := c.Relevance + c.Completeness + c.Actionability
	return QualityScore{Overall: overall, Components: c, Indicator: indicatorFor(overall)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Score implements the weighted composite of spec.md §4.5 over a
// document's full set of analyzer results. extracted is accepted for
// symmetry with ProxyScore and future extractor-quality signals; the
// current heuristic only consumes the analyzer results themselves.
func Score(results []analyzer.Result, extracted source.ExtractedText) QualityScore {
	_ = extracted
	return Compute(Components{
		Relevance:     scoreRelevance(results),
		Completeness:  scoreCompleteness(results),
		Actionability: scoreActionability(results),
	})
}

func findContent(results []analyzer.Result, kind analyzer.Kind) (any, bool) {
	for _, r := range results {
		if r.Kind == kind && !r.Failed {
			return r.Content, true
		}
	}
	return nil, false
}

// scoreRelevance rewards tag overlap between the classifier's
// AI-primitives list and the insights body, plus a flat bonus for a
// confident classification.
func scoreRelevance(results []analyzer.Result) int {
	score := 0

	if raw, ok := findContent(results, analyzer.Classifier); ok {
		if cc, ok := raw.(analyzer.ClassifierContent); ok {
			if cc.Confidence >= 0.7 {
				score += 10
			}
			if insightsRaw, ok := findContent(results, analyzer.Insights); ok {
				if ic, ok := insightsRaw.(analyzer.InsightsContent); ok {
					score += overlapScore(cc.AIPrimitives, ic.Bullets, 30)
				}
			}
		}
	}
	return clamp(score, 0, 40)
}

// overlapScore counts how many of the terms appear (case-insensitively,
// substring match) anywhere across the bullet text, scaled linearly up
// to max.
func overlapScore(terms []string, bullets []string, max int) int {
	if len(terms) == 0 || len(bullets) == 0 {
		return 0
	}
	body := strings.ToLower(strings.Join(bullets, " "))
	hits := 0
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(body, t) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	points := hits * (max / len(terms))
	if points > max {
		points = max
	}
	return points
}

// scoreCompleteness awards 10 points each for a non-empty summary,
// non-empty insights, and at least three tags, capped at 30.
func scoreCompleteness(results []analyzer.Result) int {
	score := 0

	if raw, ok := findContent(results, analyzer.Summarizer); ok {
		if sc, ok := raw.(analyzer.SummarizerContent); ok && strings.TrimSpace(sc.Markdown) != "" {
			score += 10
		}
	}
	if raw, ok := findContent(results, analyzer.Insights); ok {
		if ic, ok := raw.(analyzer.InsightsContent); ok && len(ic.Bullets) > 0 {
			score += 10
		}
	}
	if tagCount(results) >= 3 {
		score += 10
	}
	return clamp(score, 0, 30)
}

func tagCount(results []analyzer.Result) int {
	count := 0
	if raw, ok := findContent(results, analyzer.ContentTagger); ok {
		if ctc, ok := raw.(analyzer.ContentTaggerContent); ok {
			count += len(ctc.Tags)
		}
	}
	if raw, ok := findContent(results, analyzer.Tagger); ok {
		if tc, ok := raw.(analyzer.TaggerContent); ok {
			count += len(tc.TopicalTags) + len(tc.DomainTags)
		}
	}
	return count
}

var imperativeRe = regexp.MustCompile(`(?i)^(consider|review|watch|monitor|investigate|verify|confirm|expect|prepare|avoid|prioritize|track|assess|evaluate|plan)\b`)

// scoreActionability counts imperative-voice sentences in the insights
// body, 10 points each, capped at 30.
func scoreActionability(results []analyzer.Result) int {
	raw, ok := findContent(results, analyzer.Insights)
	if !ok {
		return 0
	}
	ic, ok := raw.(analyzer.InsightsContent)
	if !ok {
		return 0
	}
	count := 0
	for _, b := range ic.Bullets {
		if imperativeRe.MatchString(strings.TrimSpace(b)) {
			count++
		}
	}
	if count > 3 {
		count = 3
	}
	return count * 10
}
