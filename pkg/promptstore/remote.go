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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// RemoteSource queries the note-store's prompt database, a separate
// read path from pkg/deststore's page operations even though both talk
// to the same backing service.
type RemoteSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteSource builds a RemoteSource against baseURL, authenticated
// with apiKey if non-empty.
func NewRemoteSource(baseURL, apiKey string) *RemoteSource {
	return &RemoteSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ListAll fetches every prompt template currently registered remotely.
func (r *RemoteSource) ListAll(ctx context.Context) ([]Template, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/prompts", nil)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("promptstore remote list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("promptstore remote list: status %d", resp.StatusCode)
	}

	var payload struct {
		Prompts []Template `json:"prompts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("promptstore remote list: decode: %w", err)
	}
	for i := range payload.Prompts {
		payload.Prompts[i].Source = SourceRemote
		if err := payload.Prompts[i].ValidatePlaceholders(); err != nil {
			return nil, fmt.Errorf("promptstore remote list: %w", err)
		}
	}
	return payload.Prompts, nil
}
