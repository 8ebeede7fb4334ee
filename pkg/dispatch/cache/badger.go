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
	"github.com/dgraph-io/badger/v4"

	"github.com/janus-lang/janus/pkg/dispatch/table"
)

// BadgerStore implements the same cache contract as FileStore, backed by an
// embedded Badger key-value store instead of one file per signature family.
// It exists for hosts doing many small incremental builds, where thousands
// of tiny .jdsc files become their own filesystem-overhead problem.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if absent) a Badger database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{db: db}, nil
}

// Close releases the underlying Badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Cache writes `t` under key `name`, exactly as FileStore.Cache does for a
// file — the wire payload is identical between the two backends.
func (s *BadgerStore) Cache(name string, t *table.DispatchTable, buildHash uint64) error {
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

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), data)
	})
}

// Load mirrors FileStore.Load's miss semantics: a missing key, a read
// error, a malformed payload, or a build-hash mismatch are all reported as
// ok=false rather than propagated as an error.
func (s *BadgerStore) Load(name string, expectedBuildHash uint64) (*table.DispatchTable, bool) {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false
	}

	var file File
	if err := file.UnmarshalBinary(data); err != nil {
		return nil, false
	}

	if file.Header.BuildHash != expectedBuildHash || len(file.Tables) == 0 {
		return nil, false
	}

	return file.Tables[0], true
}

// Invalidate deletes the entry for `name`, if present.
func (s *BadgerStore) Invalidate(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}

		return err
	})
}

// InvalidateAll drops every entry in the store.
func (s *BadgerStore) InvalidateAll() error {
	return s.db.DropAll()
}

// Stats walks every key to classify it valid/invalid, mirroring
// FileStore.Stats.
func (s *BadgerStore) Stats() Stats {
	var st Stats

	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			st.Total++

			item := it.Item()
			st.Size += item.ValueSize()

			err := item.Value(func(val []byte) error {
				var file File
				return file.UnmarshalBinary(val)
			})
			if err != nil {
				st.Invalid++
				continue
			}

			st.Valid++
		}

		return nil
	})

	return st
}
