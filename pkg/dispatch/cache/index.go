// Copyright The Janus Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cache

import (
	"os"

	"github.com/segmentio/encoding/json"
)

// IndexEntry is one row of the optional dispatch_cache_index.json, per §6.
type IndexEntry struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Mtime int64  `json:"mtime"`
	Size  int64  `json:"size"`
}

// Index is the schema of dispatch_cache_index.json: {version, build_hash,
// entries}. It is optional — its absence is never an error, only a signal
// that the store must be consulted file-by-file instead.
type Index struct {
	Version   int          `json:"version"`
	BuildHash uint64       `json:"build_hash"`
	Entries   []IndexEntry `json:"entries"`
}

// IndexVersion is the current schema version written by WriteIndex.
const IndexVersion = 1

// WriteIndex serializes `idx` to `path` using segmentio/encoding/json, a
// drop-in faster replacement for encoding/json chosen because the index can
// grow to one entry per signature family in large builds.
func WriteIndex(path string, idx Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// ReadIndex reads and parses the index at `path`. A missing or malformed
// index is reported via the returned error; callers treat that as "rebuild
// from the store directly" rather than a fatal condition.
func ReadIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Index{}, err
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, err
	}

	return idx, nil
}
