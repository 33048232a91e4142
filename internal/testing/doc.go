// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package testing
