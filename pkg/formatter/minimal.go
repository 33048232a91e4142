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
)

// MinimalFormatter renders a document as a flat paragraph plus one
// bullet list — no toggles, no quality callout, no attribution
// section — for USE_ENHANCED_FORMATTING=false (spec.md §6). It still
// respects the 2000-character split and the block cap.
func MinimalFormatter(doc FormatInput) []Block {
	max := doc.MaxBlocks
	if max <= 0 {
		max = DefaultMaxBlocks
	}

	var blocks []Block
	blocks = append(blocks, heading2(doc.Title))

	if doc.ExtractionFailed {
		blocks = append(blocks, paragraph("Content could not be extracted from this document."))
	}

	if doc.Summary != nil && strings.TrimSpace(doc.Summary.Markdown) != "" {
		for _, chunk := range splitAtSentences(doc.Summary.Markdown, maxBlockChars) {
			blocks = append(blocks, paragraph(chunk))
		}
	}

	var tags []string
	if doc.ContentTagger != nil {
		tags = append(tags, doc.ContentTagger.Tags...)
	}
	if doc.Insights != nil {
		for _, bullet := range doc.Insights.Bullets {
			blocks = append(blocks, bulletItem(bullet))
		}
	}
	if len(tags) > 0 {
		blocks = append(blocks, paragraph(fmt.Sprintf("Tags: %s", strings.Join(tags, ", "))))
	}

	if len(blocks) > max {
		blocks = blocks[:max]
	}
	return blocks
}
