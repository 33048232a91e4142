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

// Package promptstore implements the prompt configuration subsystem (C2):
// a dual-source (remote note-store, local YAML file) cache of prompt
// templates keyed by (content type, analyzer kind), with a legacy-key
// compatibility probe and a local-file fallback of last resort.
package promptstore

import (
	"fmt"
	"strings"
)

// Source identifies where a Template was loaded from, carried into
// attribution so downstream analytics can distinguish remote-curated
// prompts from the bundled local defaults.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Template is a single prompt configuration for one (content type,
// analyzer) pair.
type Template struct {
	ID                string  `yaml:"id"`
	Name              string  `yaml:"name"`
	ContentType       string  `yaml:"content_type"`
	Analyzer          string  `yaml:"analyzer"`
	SystemText        string  `yaml:"system_text"`
	UserTemplate      string  `yaml:"user_template"`
	Temperature       float64 `yaml:"temperature"`
	WebSearchEnabled  bool    `yaml:"web_search_enabled"`
	QualityThreshold  int     `yaml:"quality_threshold"`
	Version           int     `yaml:"version"`
	Source            Source  `yaml:"-"`
}

// NormalizeKey implements the cache-key rule shared by load and lookup:
// lower(contentType).replace(' ', '_') + '_' + lower(analyzer).
func NormalizeKey(contentType, analyzer string) string {
	ct := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(contentType), " ", "_"))
	an := strings.ToLower(strings.TrimSpace(analyzer))
	return ct + "_" + an
}

// legacyKey is the compatibility probe: the content type lowercased but
// with its spacing kept (spaces are not replaced or trimmed), joined the
// same way, covering prompts
// registered in the remote store before normalization was enforced.
func legacyKey(contentType, analyzer string) string {
	return strings.ToLower(contentType) + "_" + strings.ToLower(analyzer)
}

// templateVars are the only placeholders Render recognizes; an
// unrecognized {{placeholder}} fails at load time (when a Template is
// first parsed into a renderer), not at render time.
var templateVars = map[string]bool{
	"title": true, "content": true, "content_type": true, "hints": true,
}

// ValidatePlaceholders scans UserTemplate for {{name}} placeholders and
// reports the first one outside templateVars.
func (t Template) ValidatePlaceholders() error {
	s := t.UserTemplate
	for {
		start := strings.Index(s, "{{")
		if start == -1 {
			return nil
		}
		end := strings.Index(s[start:], "}}")
		if end == -1 {
			return fmt.Errorf("prompt template %q: unterminated placeholder", t.ID)
		}
		name := strings.TrimSpace(s[start+2 : start+end])
		if !templateVars[name] {
			return fmt.Errorf("prompt template %q: unknown placeholder %q", t.ID, name)
		}
		s = s[start+end+2:]
	}
}

// Render substitutes title, content, content type and hints into the
// user template. Unknown placeholders were already rejected by
// ValidatePlaceholders at load time, so Render only ever fills the
// enumerated variable set.
func (t Template) Render(title, content, contentType, hints string) string {
	r := strings.NewReplacer(
		"{{title}}", title,
		"{{content}}", content,
		"{{content_type}}", contentType,
		"{{hints}}", hints,
	)
	return r.Replace(t.UserTemplate)
}
