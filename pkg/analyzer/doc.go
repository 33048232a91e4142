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

// Package analyzer: the classifier runs first to establish content
// type, then every other enabled analyzer (summarizer, insights,
// tagger, content-tagger, and the optional technical/market
// specializations) reads that content type to select its own prompt.
// Once classification has run, the remaining analyzers are independent
// of one another and safe to invoke concurrently; pkg/pipeline is
// responsible for that fan-out, this package only defines the
// per-analyzer contract.
package analyzer
