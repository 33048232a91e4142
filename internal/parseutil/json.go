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

// Package parseutil holds the defensive text-to-JSON extraction shared by
// every analyzer: language models routinely wrap their JSON answer in
// prose or markdown fences, and callers must tolerate that rather than
// fail the whole analysis.
package parseutil

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\}|\\[.*?\\])\\s*```")

// ExtractJSON finds the first well-formed JSON object or array in raw,
// tolerating a surrounding markdown fence and leading/trailing prose.
// It reports ok=false (never an error) when nothing in raw parses as
// JSON, so callers can fall back to treating raw as plain text.
func ExtractJSON(raw string) (json.RawMessage, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		if json.Valid([]byte(m[1])) {
			return json.RawMessage(m[1]), true
		}
	}

	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw), true
	}

	if candidate, ok := firstBalancedJSON(raw); ok {
		return candidate, true
	}

	return nil, false
}

// firstBalancedJSON scans for the first top-level '{' or '[' and walks
// forward counting brace/bracket depth (naively; it does not special-case
// braces inside string literals, which is acceptable for the prose-wrapped
// LM output this targets) until it returns to zero depth.
func firstBalancedJSON(s string) (json.RawMessage, bool) {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return nil, false
	}
	open := s[start]
	closeByte := byte('}')
	if open == '[' {
		closeByte = ']'
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case closeByte:
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return json.RawMessage(candidate), true
				}
				return nil, false
			}
		}
	}
	return nil, false
}
