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

package promptstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store answers "give me the best prompt for this (content type,
// analyzer) pair", backed by a remote note-store with a local-file
// fallback. It never fails a lookup: a miss on every source falls
// through to a synthesized default rather than an error.
type Store struct {
	remote    *RemoteSource
	localPath string
	logger    *slog.Logger

	mu    sync.RWMutex
	cache map[string]Template // normalized key -> template
}

// NewStore builds a Store. remote may be nil to run local-file only
// (e.g. in tests or offline environments).
func NewStore(remote *RemoteSource, localPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote:    remote,
		localPath: localPath,
		logger:    logger,
		cache:     make(map[string]Template),
	}
}

// Refresh reloads all prompts from the remote store into the cache,
// then merges local-file defaults for any key the remote source
// didn't cover.
func (s *Store) Refresh(ctx context.Context) error {
	next := make(map[string]Template)

	if s.remote != nil {
		remoteTemplates, err := s.remote.ListAll(ctx)
		if err != nil {
			s.logger.Warn("promptstore.refresh.remote_failed", "err", err)
		} else {
			for _, t := range remoteTemplates {
				key := NormalizeKey(t.ContentType, t.Analyzer)
				upsertHighestVersion(next, key, t)

				// Also index under the legacy (space-preserving) key, so a
				// remote content_type registered before normalization was
				// enforced is still reachable through Get's compatibility
				// probe rather than only ever hitting the local fallback.
				if legacy := legacyKey(t.ContentType, t.Analyzer); legacy != key {
					upsertHighestVersion(next, legacy, t)
				}
			}
		}
	}

	if s.localPath != "" {
		localTemplates, err := LoadLocalFile(s.localPath)
		if err != nil {
			s.logger.Warn("promptstore.refresh.local_failed", "err", err)
		} else {
			for _, t := range localTemplates {
				key := NormalizeKey(t.ContentType, t.Analyzer)
				if _, ok := next[key]; !ok {
					next[key] = t
				}
			}
		}
	}

	s.mu.Lock()
	s.cache = next
	s.mu.Unlock()

	s.logger.Info("promptstore.refresh.done", "templates", len(next))
	return nil
}

// Get always returns a Template, applying the four-step selection
// order: normalized remote key, legacy remote key, local-file template
// for (content type, analyzer), local-file default for analyzer alone.
func (s *Store) Get(ctx context.Context, contentType, analyzer string) Template {
	key := NormalizeKey(contentType, analyzer)

	s.mu.RLock()
	t, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		s.logger.Debug("promptstore.get.hit", "key", key)
		return t
	}

	legacy := legacyKey(contentType, analyzer)
	s.mu.RLock()
	t, ok = s.cache[legacy]
	s.mu.RUnlock()
	if ok {
		s.logger.Debug("promptstore.get.legacy_hit", "normalized_key", key, "legacy_key", legacy)
		return t
	}

	defaultKey := NormalizeKey("default", analyzer)
	s.mu.RLock()
	t, ok = s.cache[defaultKey]
	s.mu.RUnlock()
	if ok {
		s.logger.Debug("promptstore.get.default_fallback", "key", key, "default_key", defaultKey)
		return t
	}

	s.logger.Warn("promptstore.get.miss", "key", key)
	return fallbackTemplate(contentType, analyzer)
}

// upsertHighestVersion inserts t under key unless cache already holds
// a higher-versioned template there (spec.md §9: "highest version
// wins" on duplicate keys).
func upsertHighestVersion(cache map[string]Template, key string, t Template) {
	if existing, ok := cache[key]; ok && existing.Version > t.Version {
		return
	}
	cache[key] = t
}

// fallbackTemplate is the "never throws for missing entries" terminal
// case: a minimal usable template when every source missed.
func fallbackTemplate(contentType, analyzer string) Template {
	return Template{
		ID:           "fallback",
		Name:         fmt.Sprintf("fallback (%s/%s)", contentType, analyzer),
		ContentType:  contentType,
		Analyzer:     analyzer,
		SystemText:   "You are an analysis assistant. Respond concisely and factually.",
		UserTemplate: "Title: {{title}}\n\nContent:\n{{content}}",
		Temperature:  0.2,
		Version:      0,
		Source:       SourceLocal,
	}
}
