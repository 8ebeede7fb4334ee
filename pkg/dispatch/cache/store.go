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
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/janus-lang/janus/pkg/dispatch/table"
)

// Stats summarizes a Store's current contents.
type Stats struct {
	Total   int
	Size    int64
	Valid   int
	Invalid int
}

// Store is the cache(name, table)/load(name)/invalidate(name)/
// invalidate_all()/stats() contract from §4.10.  Both FileStore and
// BadgerStore implement it identically; a missing or corrupt entry is
// always a miss, never an error.
type Store interface {
	Cache(name string, t *table.DispatchTable, buildHash uint64) error
	Load(name string, expectedBuildHash uint64) (*table.DispatchTable, bool)
	Invalidate(name string) error
	InvalidateAll() error
	Stats() Stats
}

// FileStore is the default flat-file backend: one .jdsc file per signature
// family under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore constructs a FileStore rooted at dir, creating it if absent.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) pathFor(name string) string {
	return filepath.Join(s.Dir, name+".jdsc")
}

// Cache writes `t` to disk under a name-derived path, tagging the header
// with buildHash so a later Load can detect staleness.
func (s *FileStore) Cache(name string, t *table.DispatchTable, buildHash uint64) error {
	file := &File{
		Header: Header{
			Identifier: JDSCIdentifier,
			Major:      JDSCMajorVersion,
			Minor:      JDSCMinorVersion,
			Patch:      JDSCPatchVersion,
			BuildHash:  buildHash,
		},
		Tables: []*table.DispatchTable{t},
	}

	data, err := file.MarshalBinary()
	if err != nil {
		return err
	}

	return os.WriteFile(s.pathFor(name), data, 0o644)
}

// Load reads back the table cached under `name`.  Any read error, malformed
// payload, version mismatch, or build-hash mismatch is reported as a miss
// (ok=false), never an error — per §4.10's "missing or corrupt file is
// treated as a miss" rule.
func (s *FileStore) Load(name string, expectedBuildHash uint64) (*table.DispatchTable, bool) {
	data, err := os.ReadFile(s.pathFor(name))
	if err != nil {
		return nil, false
	}

	var file File
	if err := file.UnmarshalBinary(data); err != nil {
		log.WithError(err).WithField("name", name).Debug("dispatch cache entry unreadable, treating as miss")
		return nil, false
	}

	if file.Header.BuildHash != expectedBuildHash {
		return nil, false
	}

	if len(file.Tables) == 0 {
		return nil, false
	}

	return file.Tables[0], true
}

// Invalidate removes the cache entry for `name`, if any.
func (s *FileStore) Invalidate(name string) error {
	err := os.Remove(s.pathFor(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// InvalidateAll removes every cache entry under Dir.
func (s *FileStore) InvalidateAll() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".jdsc" {
			continue
		}

		if err := os.Remove(filepath.Join(s.Dir, e.Name())); err != nil {
			return err
		}
	}

	return nil
}

// Stats reports counts over every .jdsc file under Dir.  A file that fails
// to parse counts as Invalid, not as an error.
func (s *FileStore) Stats() Stats {
	var st Stats

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return st
	}

	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".jdsc" {
			continue
		}

		st.Total++

		info, err := e.Info()
		if err != nil {
			st.Invalid++
			continue
		}

		st.Size += info.Size()

		data, err := os.ReadFile(filepath.Join(s.Dir, e.Name()))
		if err != nil {
			st.Invalid++
			continue
		}

		var file File
		if err := file.UnmarshalBinary(data); err != nil {
			st.Invalid++
			continue
		}

		st.Valid++
	}

	return st
}
