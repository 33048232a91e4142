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

package llmclient

import "fmt"

// classifyHTTPErr wraps a provider-level transport or HTTP-status error
// with the nearest sentinel of the C3 error taxonomy (spec.md §4.3), so
// callers can use errors.Is regardless of which backend produced it.
// status is 0 for a transport-level failure (no response received).
func classifyHTTPErr(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case status == http401 || status == http403:
		return fmt.Errorf("%s: %w: %v", provider, ErrAuthFailed, err)
	case status == http429 || status >= http500:
		return fmt.Errorf("%s: %w: %v", provider, ErrProviderUnavailable, err)
	case status >= http400 && status < http500:
		return fmt.Errorf("%s: %w: %v", provider, ErrInvalidRequest, err)
	default:
		return fmt.Errorf("%s: %w: %v", provider, ErrProviderUnavailable, err)
	}
}

const (
	http400 = 400
	http401 = 401
	http403 = 403
	http429 = 429
	http500 = 500
)
