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

package formatter

import (
	"fmt"
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/attribution"
	"github.com/riverscornelson/knowledge-pipeline/pkg/quality"
)

// DefaultMaxBlocks is the hard top-level block cap when the caller
// doesn't override MAX_NOTION_BLOCKS (spec.md §6, default 15).
const DefaultMaxBlocks = 15

// FormatInput bundles everything one document's Format call needs:
// the per-kind analyzer outputs (any of which may be absent, either
// because that analyzer is disabled or because it failed), the
// composite score, and the attribution log.
type FormatInput struct {
	Title             string
	ExtractionFailed  bool
	Classifier        *analyzer.ClassifierContent
	Summary           *analyzer.SummarizerContent
	Insights          *analyzer.InsightsContent
	Tagger            *analyzer.TaggerContent
	ContentTagger     *analyzer.ContentTaggerContent
	Specialized       []SpecializedNote
	Quality           quality.QualityScore
	Attribution       []attribution.Record
	SourceURL         string
	MaxBlocks         int // 0 uses DefaultMaxBlocks
}

// SpecializedNote carries one technical/market analyzer's note
// alongside a label, folded into the Key Insights section.
type SpecializedNote struct {
	Label string
	Note  string
}

// Format implements the deterministic ordering and constraints of
// spec.md §4.7: title/banner, quality indicator, summary callout,
// collapsible Key Insights, collapsible Classification & Tags,
// collapsible Attribution, source link. Sections with no content are
// omitted entirely rather than emitted empty.
func Format(doc FormatInput) []Block {
	max := doc.MaxBlocks
	if max <= 0 {
		max = DefaultMaxBlocks
	}

	var blocks []Block
	blocks = append(blocks, heading2(doc.Title))

	if doc.ExtractionFailed {
		blocks = append(blocks, callout("Content could not be extracted from this document; analyzers ran against a placeholder.", "⚠️"))
	}

	blocks = append(blocks, qualityBlock(doc.Quality))

	if doc.Summary != nil && strings.TrimSpace(doc.Summary.Markdown) != "" {
		blocks = append(blocks, summaryBlocks(*doc.Summary)...)
	}

	if b, ok := keyInsightsToggle(doc); ok {
		blocks = append(blocks, b)
	}

	if b, ok := classificationToggle(doc); ok {
		blocks = append(blocks, b)
	}

	if b, ok := attributionToggle(doc.Attribution); ok {
		blocks = append(blocks, b)
	}

	if doc.SourceURL != "" {
		blocks = append(blocks, bookmark(doc.SourceURL))
	}

	if len(blocks) > max {
		blocks = blocks[:max]
	}
	return blocks
}

func qualityBlock(q quality.QualityScore) Block {
	text := fmt.Sprintf("%s Quality: %d/100 (relevance %d, completeness %d, actionability %d)",
		q.Indicator.Emoji(), q.Overall, q.Components.Relevance, q.Components.Completeness, q.Components.Actionability)
	return callout(text, q.Indicator.Emoji())
}

func summaryBlocks(s analyzer.SummarizerContent) []Block {
	blocks := markdownToBlocks(s.Markdown)
	if len(blocks) == 0 {
		return nil
	}
	// The first block of the summary section is rendered as a callout
	// rather than a bare paragraph, so it stands out from the body.
	if blocks[0].Kind == KindParagraph {
		blocks[0] = callout(plainText(blocks[0].Text), "📝")
	}
	return blocks
}

func keyInsightsToggle(doc FormatInput) (Block, bool) {
	var children []Block
	if doc.Insights != nil {
		for _, bullet := range doc.Insights.Bullets {
			children = append(children, bulletItem(bullet))
		}
	}
	for _, note := range doc.Specialized {
		if strings.TrimSpace(note.Note) == "" {
			continue
		}
		children = append(children, heading3(note.Label))
		children = append(children, splitOversizedBlocks([]Block{paragraphWithSpans(note.Note)})...)
	}
	if len(children) == 0 {
		return Block{}, false
	}
	return toggle("Key Insights", children), true
}

func classificationToggle(doc FormatInput) (Block, bool) {
	var children []Block
	if doc.Classifier != nil {
		c := doc.Classifier
		if c.ContentType != "" {
			children = append(children, paragraph(fmt.Sprintf("Content Type: %s", c.ContentType)))
		}
		if c.Vendor != "" {
			children = append(children, paragraph(fmt.Sprintf("Vendor: %s", c.Vendor)))
		}
		if len(c.AIPrimitives) > 0 {
			children = append(children, paragraph(fmt.Sprintf("AI Primitives: %s", strings.Join(c.AIPrimitives, ", "))))
		}
	}
	if doc.ContentTagger != nil && len(doc.ContentTagger.Tags) > 0 {
		children = append(children, paragraph(fmt.Sprintf("Content Tags: %s", strings.Join(doc.ContentTagger.Tags, ", "))))
	}
	if doc.Tagger != nil {
		if len(doc.Tagger.TopicalTags) > 0 {
			children = append(children, paragraph(fmt.Sprintf("Topical Tags: %s", strings.Join(doc.Tagger.TopicalTags, ", "))))
		}
		if len(doc.Tagger.DomainTags) > 0 {
			children = append(children, paragraph(fmt.Sprintf("Domain Tags: %s", strings.Join(doc.Tagger.DomainTags, ", "))))
		}
	}
	if len(children) == 0 {
		return Block{}, false
	}
	return toggle("Classification & Tags", children), true
}

// attributionToggle renders one row per analyzer invocation with its
// prompt name, version, duration, token count, and subscore, plus
// web-search use and any error kind. The prompt name is plain text; no
// link to the prompt store entry is rendered.
func attributionToggle(records []attribution.Record) (Block, bool) {
	if len(records) == 0 {
		return Block{}, false
	}
	var children []Block
	for _, r := range records {
		line := fmt.Sprintf("%s — %s v%d, %dms, %d tokens, score %d",
			r.AnalyzerKind, r.PromptName, r.PromptVersion, r.DurationMS, r.TokenCount, r.QualitySubscore)
		if r.WebSearchUsed {
			line += ", web search used"
		}
		if r.ErrorKind != "" {
			line += fmt.Sprintf(", failed (%s)", r.ErrorKind)
		}
		children = append(children, paragraph(line))
	}
	return toggle("Attribution", children), true
}
