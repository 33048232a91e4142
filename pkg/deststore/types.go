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

package deststore

import "time"

// Status is a destination page's lifecycle state.
type Status string

const (
	StatusInbox    Status = "Inbox"
	StatusEnriched Status = "Enriched"
	StatusFailed   Status = "Failed"
)

// PageProperties is the typed key-value property set carried by a
// DestinationPage, independent of its block body. Every field maps to
// a destination-store column of the same intent; EnsureSchema documents
// the provisioning these assume.
type PageProperties struct {
	Title        string
	Fingerprint  string
	ContentType  string
	Status       Status
	Vendor       string
	AIPrimitives []string
	TopicalTags  []string
	DomainTags   []string
	ContentTags  []string
	QualityScore int
	CreatedDate  time.Time
	DriveURL     string

	// ContentLength is not part of the spec's property list but is
	// carried by pages written through this client so a later
	// metadata-only pass (quality.ProxyScore) has a length signal to
	// work with, since it can't re-read the source text.
	ContentLength int
}

// EnsureSchema documents, but does not create, the destination store's
// required property schema: Title (title), Fingerprint (rich text,
// unique by convention), Content Type (select), Status (select:
// Inbox/Enriched/Failed), Vendor (select), AI Primitives (multi-select),
// Topical Tags (multi-select), Domain Tags (multi-select), Content Tags
// (multi-select), Quality Score (number), Created Date (date), Drive URL
// (url). Schema provisioning happens out of band in the destination
// store itself; this function exists only as a reference point for
// operators setting one up.
func EnsureSchema() string {
	return "Title(title), Fingerprint(text), Content Type(select), " +
		"Status(select), Vendor(select), AI Primitives(multi_select), " +
		"Topical Tags(multi_select), Domain Tags(multi_select), " +
		"Content Tags(multi_select), Quality Score(number), " +
		"Created Date(date), Drive URL(url)"
}
