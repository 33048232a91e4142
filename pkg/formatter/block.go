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

// Package formatter implements the block formatter (C7): it converts a
// document's analyzer outputs, quality score, and attribution log into
// the destination store's ordered block sequence, subject to the
// length and mobile-readability constraints of spec.md §4.7.
package formatter

// Kind identifies a destination-store block primitive.
type Kind string

const (
	KindParagraph     Kind = "paragraph"
	KindHeading2      Kind = "heading_2"
	KindHeading3      Kind = "heading_3"
	KindBulletItem    Kind = "bulleted_list_item"
	KindNumberedItem  Kind = "numbered_list_item"
	KindCallout       Kind = "callout"
	KindToggle        Kind = "toggle"
	KindQuote         Kind = "quote"
	KindCode          Kind = "code"
	KindDivider       Kind = "divider"
	KindBookmark      Kind = "bookmark"
)

// Span is one run of rich text within a block; a paragraph's text is a
// []Span rather than a bare string so bold/italic/inline-code survive
// the markdown-subset conversion.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
}

// Plain builds a single unformatted Span, the common case.
func Plain(text string) []Span { return []Span{{Text: text}} }

// Block is a tagged union over the destination store's block
// primitives. Only the fields relevant to Kind are populated; callers
// (pkg/deststore) switch on Kind to know which ones to read.
type Block struct {
	Kind     Kind
	Text     []Span
	Icon     string  // KindCallout
	Language string  // KindCode
	URL      string  // KindBookmark
	Children []Block // KindToggle; nested blocks, never counted toward the top-level cap
}

func paragraph(text string) Block     { return Block{Kind: KindParagraph, Text: Plain(text)} }
func heading2(text string) Block      { return Block{Kind: KindHeading2, Text: Plain(text)} }
func heading3(text string) Block      { return Block{Kind: KindHeading3, Text: Plain(text)} }
func bulletItem(text string) Block    { return Block{Kind: KindBulletItem, Text: Plain(text)} }
func numberedItem(text string) Block  { return Block{Kind: KindNumberedItem, Text: Plain(text)} }
func quoteBlock(text string) Block    { return Block{Kind: KindQuote, Text: Plain(text)} }
func callout(text, icon string) Block { return Block{Kind: KindCallout, Text: Plain(text), Icon: icon} }
func toggle(title string, children []Block) Block {
	return Block{Kind: KindToggle, Text: Plain(title), Children: children}
}
func bookmark(url string) Block { return Block{Kind: KindBookmark, URL: url} }
