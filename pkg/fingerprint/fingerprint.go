// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint derives the content-addressable identifier (C1)
// the pipeline uses to recognize a document it has already enriched, and
// wraps the destination store's fingerprint property with a dedup check.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Fingerprint returns the SHA-256 hash of raw bytes. Used when the dedup
// mode is FingerprintHashBytes (spec.md §4.1).
func Fingerprint(raw []byte) [32]byte {
	return sha256.Sum256(raw)
}

// trackingParamPrefixes lists query-parameter prefixes stripped before
// hashing a URL, so that campaign/tracking decoration on an otherwise
// identical drive link does not defeat deduplication.
var trackingParamPrefixes = []string{"utm_", "ref", "gclid", "fbclid", "mc_"}

// FingerprintURL returns the SHA-256 hash of a canonicalized external
// URL: lowercased scheme and host, tracking query parameters stripped,
// remaining query parameters sorted for stable ordering. Used when the
// dedup mode is FingerprintHashURL; the document's bytes are still
// downloaded for extraction.
func FingerprintURL(raw string) [32]byte {
	return sha256.Sum256([]byte(Canonicalize(raw)))
}

// Canonicalize normalizes a URL for stable fingerprinting. Malformed
// input is returned trimmed and lowercased rather than erroring, since
// the caller has no fallback once dedup mode has already committed to
// URL hashing.
func Canonicalize(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lower := strings.ToLower(key)
			for _, prefix := range trackingParamPrefixes {
				if strings.HasPrefix(lower, prefix) {
					q.Del(key)
					break
				}
			}
		}
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(strings.Join(q[k], ","))
		}
		u.RawQuery = sb.String()
	}

	return u.String()
}

// Store is the subset of pkg/deststore.Client that Index needs, kept
// narrow so fingerprint doesn't import the full destination-store
// surface (or create an import cycle with it).
type Store interface {
	FindByFingerprint(ctx context.Context, fp [32]byte) (pageID string, found bool, err error)
}

// Index answers "have we seen this before" (C1). It holds no state of
// its own: the destination store is authoritative, queried on demand.
type Index struct {
	store Store
}

// NewIndex wraps a destination-store-backed Store.
func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Exists reports whether a page with the given fingerprint already
// exists in the destination store. A store-reported "already exists"
// conflict on a subsequent create is treated by the caller as a hit too
// (see pkg/pipeline), since creation can race with another writer.
func (i *Index) Exists(ctx context.Context, fp [32]byte) (pageID string, ok bool, err error) {
	pageID, found, err := i.store.FindByFingerprint(ctx, fp)
	if err != nil {
		return "", false, fmt.Errorf("fingerprint index lookup: %w", err)
	}
	return pageID, found, nil
}
