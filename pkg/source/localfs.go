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

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/pkg/fingerprint"
)

// LocalFolderIngestor implements Ingestor over a plain filesystem
// directory: the --process-local phase of spec.md §6. It is the one
// ingestion path the pipeline can run without any external credentials,
// since it only needs read access to a local download folder; cloud
// drive acquisition (DriveIngestor) requires OAuth, an out-of-scope
// external collaborator (spec.md §1).
type LocalFolderIngestor struct {
	// Dir is the folder to scan. Files are read non-recursively, newest
	// modification time first, matching the nightly-job expectation that
	// the most recently downloaded documents are processed first.
	Dir string

	// Mode selects how Fingerprint is derived; local documents have no
	// external URL, so FingerprintHashURL degenerates to hashing the
	// file path (Dir joined with the file name; relative if Dir is)
	// instead.
	Mode FingerprintMode

	// Extensions restricts which files are considered source documents.
	// Defaults to {".pdf"} when empty.
	Extensions []string
}

// Documents implements Ingestor by walking Dir once and emitting one
// Document per matching file. Both channels are closed once every file
// has been emitted or an unrecoverable directory error occurs.
func (l *LocalFolderIngestor) Documents(ctx context.Context) (<-chan Document, <-chan error) {
	docs := make(chan Document)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		entries, err := os.ReadDir(l.Dir)
		if err != nil {
			errs <- fmt.Errorf("local ingestion: read dir %s: %w", l.Dir, err)
			return
		}

		type fileEntry struct {
			path    string
			modTime int64
		}
		var files []fileEntry
		for _, entry := range entries {
			if entry.IsDir() || !l.matches(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, fileEntry{path: filepath.Join(l.Dir, entry.Name()), modTime: info.ModTime().UnixNano()})
		}
		sort.Slice(files, func(i, j int) bool { return files[i].modTime > files[j].modTime })

		for _, f := range files {
			if ctx.Err() != nil {
				return
			}

			raw, err := os.ReadFile(f.path)
			if err != nil {
				select {
				case errs <- fmt.Errorf("local ingestion: read %s: %w", f.path, err):
				default:
				}
				continue
			}

			var fp [32]byte
			if l.Mode == FingerprintHashURL {
				fp = fingerprint.FingerprintURL(f.path)
			} else {
				fp = fingerprint.Fingerprint(raw)
			}

			doc := Document{
				Fingerprint: fp,
				Origin:      OriginLocal,
				DisplayName: CleanDisplayName(filepath.Base(f.path)),
				RawBytes:    raw,
			}

			select {
			case docs <- doc:
			case <-ctx.Done():
				return
			}
		}
	}()

	return docs, errs
}

func (l *LocalFolderIngestor) matches(name string) bool {
	exts := l.Extensions
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
