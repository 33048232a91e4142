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
	"regexp"
	"strings"
)

// maxBlockChars is the hard per-block text limit of spec.md §4.7.
const maxBlockChars = 2000

var (
	fenceRe     = regexp.MustCompile("^```\\s*([a-zA-Z0-9_+-]*)\\s*$")
	numberedRe  = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe    = regexp.MustCompile(`\*(.+?)\*`)
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
)

// markdownToBlocks converts the subset of Markdown the formatter
// accepts — headings H2/H3, bulleted and numbered lists, bold, italic,
// inline code, block quotes, and fenced code — into blocks. Anything
// else (H1, tables, images, raw HTML) downgrades to a plain paragraph,
// per spec.md §4.7's Markdown conversion rule.
func markdownToBlocks(md string) []Block {
	lines := strings.Split(md, "\n")
	var blocks []Block

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case fenceRe.MatchString(trimmed):
			lang := fenceRe.FindStringSubmatch(trimmed)[1]
			var code []string
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) != "```" {
				code = append(code, lines[i])
				i++
			}
			i++ // skip closing fence, if present
			blocks = append(blocks, Block{Kind: KindCode, Text: Plain(strings.Join(code, "\n")), Language: lang})

		case strings.HasPrefix(trimmed, "### "):
			blocks = append(blocks, heading3(strings.TrimPrefix(trimmed, "### ")))
			i++

		case strings.HasPrefix(trimmed, "## "):
			blocks = append(blocks, heading2(strings.TrimPrefix(trimmed, "## ")))
			i++

		case strings.HasPrefix(trimmed, "# "):
			// H1 is outside the accepted subset; downgrade to a plain paragraph.
			blocks = append(blocks, paragraphWithSpans(strings.TrimPrefix(trimmed, "# ")))
			i++

		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			blocks = append(blocks, Block{Kind: KindBulletItem, Text: parseInline(trimmed[2:])})
			i++

		case numberedRe.MatchString(trimmed):
			m := numberedRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, Block{Kind: KindNumberedItem, Text: parseInline(m[1])})
			i++

		case strings.HasPrefix(trimmed, "> "):
			blocks = append(blocks, Block{Kind: KindQuote, Text: parseInline(strings.TrimPrefix(trimmed, "> "))})
			i++

		default:
			blocks = append(blocks, paragraphWithSpans(trimmed))
			i++
		}
	}
	return splitOversizedBlocks(blocks)
}

func paragraphWithSpans(text string) Block {
	return Block{Kind: KindParagraph, Text: parseInline(text)}
}

// parseInline recognizes **bold**, *italic*, and `inline code` spans
// within one line; plain-text runs between them carry no formatting.
// Nested emphasis is not supported, which is enough for model-generated
// markdown.
func parseInline(text string) []Span {
	type match struct {
		start, end int
		span       Span
	}
	var matches []match
	for _, loc := range boldRe.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, match{loc[0], loc[1], Span{Text: text[loc[2]:loc[3]], Bold: true}})
	}
	for _, loc := range inlineCodeRe.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, match{loc[0], loc[1], Span{Text: text[loc[2]:loc[3]], Code: true}})
	}

	// Italic reuses the same '*' delimiter as bold, so run it over a
	// masked copy with already-claimed bold/code ranges blanked out —
	// otherwise "**bold**" parses as a nested, broken italic match.
	masked := []byte(text)
	for _, m := range matches {
		for i := m.start; i < m.end; i++ {
			masked[i] = ' '
		}
	}
	for _, loc := range italicRe.FindAllStringSubmatchIndex(string(masked), -1) {
		matches = append(matches, match{loc[0], loc[1], Span{Text: text[loc[2]:loc[3]], Italic: true}})
	}
	if len(matches) == 0 {
		return Plain(text)
	}

	// Sort by start offset, dropping any overlap (keep the earliest).
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].start < matches[j-1].start; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	var spans []Span
	cursor := 0
	for _, m := range matches {
		if m.start < cursor {
			continue
		}
		if m.start > cursor {
			spans = append(spans, Span{Text: text[cursor:m.start]})
		}
		spans = append(spans, m.span)
		cursor = m.end
	}
	if cursor < len(text) {
		spans = append(spans, Span{Text: text[cursor:]})
	}
	return spans
}

// splitOversizedBlocks applies the 2000-character cap: any block whose
// plain-text length exceeds it is split at sentence boundaries into
// multiple consecutive blocks of the same kind.
func splitOversizedBlocks(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		if plainLen(b.Text) <= maxBlockChars {
			out = append(out, b)
			continue
		}
		for _, chunk := range splitAtSentences(plainText(b.Text), maxBlockChars) {
			clone := b
			clone.Text = Plain(chunk)
			out = append(out, clone)
		}
	}
	return out
}

func plainText(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func plainLen(spans []Span) int { return len(plainText(spans)) }

var sentenceEndRe = regexp.MustCompile(`[.!?]["')\]]?\s+`)

// splitAtSentences breaks text into chunks no longer than limit,
// preferring to break after a sentence-ending punctuation mark; a
// single sentence longer than limit is hard-cut as a last resort.
func splitAtSentences(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	remaining := text
	for len(remaining) > limit {
		window := remaining[:limit]
		cut := -1
		for _, loc := range sentenceEndRe.FindAllStringIndex(window, -1) {
			cut = loc[1]
		}
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimSpace(remaining[:cut]))
		remaining = remaining[cut:]
	}
	if strings.TrimSpace(remaining) != "" {
		chunks = append(chunks, strings.TrimSpace(remaining))
	}
	return chunks
}
