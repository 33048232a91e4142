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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// localFile is the on-disk shape of the bundled prompt defaults,
// mirroring the teacher's .cie/project.yaml loading idiom: a flat list
// under one top-level key, decoded in one pass.
type localFile struct {
	Prompts []Template `yaml:"prompts"`
}

// LoadLocalFile reads the YAML defaults file used as the fallback of
// last resort when neither the normalized nor legacy remote key hits.
func LoadLocalFile(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("promptstore local file %s: %w", path, err)
	}

	var lf localFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("promptstore local file %s: %w", path, err)
	}

	for i := range lf.Prompts {
		lf.Prompts[i].Source = SourceLocal
		if err := lf.Prompts[i].ValidatePlaceholders(); err != nil {
			return nil, fmt.Errorf("promptstore local file %s: %w", path, err)
		}
	}
	return lf.Prompts, nil
}
