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

package quality

import (
	"time"

	"github.com/riverscornelson/knowledge-pipeline/pkg/deststore"
)

// proxyTolerance is the similarity tolerance a caller should apply when
// comparing two ProxyScore values, wider than the ±20 used for explicit
// scores to reflect the lower confidence of a metadata-only estimate.
const proxyTolerance = 30

// ProxyTolerance reports the similarity tolerance, in score points, a
// caller should use when comparing two ProxyScore results.
func ProxyTolerance() int { return proxyTolerance }

// ExplicitTolerance is the tighter tolerance used when comparing two
// scores both produced by Score (an explicit, analyzer-backed score).
const ExplicitTolerance = 20

// ProxyScore derives a quality estimate from a destination page's
// stored properties alone, for use when the page's explicit score is
// unavailable during a later similarity pass (spec.md §4.5's
// fallback). It never sees the original analyzer results or extracted
// text, only what survives in the page metadata: content length, tag
// richness across the three tag hierarchies, processing status, vendor
// reputation, and recency.
func ProxyScore(page deststore.PageProperties) QualityScore {
	return Compute(Components{
		Relevance:     proxyRelevance(page),
		Completeness:  proxyCompleteness(page),
		Actionability: proxyActionability(page),
	})
}

// proxyRelevance substitutes tag-hierarchy richness and vendor presence
// for the explicit classifier-confidence/overlap signal Score has.
func proxyRelevance(page deststore.PageProperties) int {
	score := 0
	if page.Vendor != "" {
		score += 10
	}
	tagTiers := 0
	if len(page.AIPrimitives) > 0 {
		tagTiers++
	}
	if len(page.TopicalTags) > 0 {
		tagTiers++
	}
	if len(page.DomainTags) > 0 {
		tagTiers++
	}
	score += tagTiers * 10
	return clamp(score, 0, 40)
}

// proxyCompleteness substitutes content length and content-tag count
// for the explicit non-empty-summary/insights signal Score has.
func proxyCompleteness(page deststore.PageProperties) int {
	score := 0
	switch {
	case page.ContentLength >= 2000:
		score += 15
	case page.ContentLength >= 500:
		score += 10
	case page.ContentLength > 0:
		score += 5
	}
	if len(page.ContentTags) >= 3 {
		score += 15
	} else if len(page.ContentTags) > 0 {
		score += 5
	}
	return clamp(score, 0, 30)
}

// proxyActionability substitutes processing status and recency for the
// explicit imperative-sentence count Score has: a successfully
// Enriched, recently-written page is weakly more likely to carry
// actionable content than a stale or Failed one.
func proxyActionability(page deststore.PageProperties) int {
	score := 0
	if page.Status == deststore.StatusEnriched {
		score += 15
	}
	if !page.CreatedDate.IsZero() {
		age := time.Since(page.CreatedDate)
		switch {
		case age <= 30*24*time.Hour:
			score += 15
		case age <= 180*24*time.Hour:
			score += 8
		}
	}
	return clamp(score, 0, 30)
}
