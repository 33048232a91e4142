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

package analyzer

import (
	"errors"

	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
)

// errorKind maps an llmclient error to one of the error-kind labels of
// spec.md §7, recorded on the attribution record rather than escaping
// to the process boundary (only configuration errors do that).
func errorKind(err error) string {
	switch {
	case errors.Is(err, llmclient.ErrAuthFailed):
		return "unrecoverable_provider"
	case errors.Is(err, llmclient.ErrProviderUnavailable), errors.Is(err, llmclient.ErrTimeout):
		return "transient"
	case errors.Is(err, llmclient.ErrInvalidRequest):
		return "content_level"
	default:
		return "transient"
	}
}
