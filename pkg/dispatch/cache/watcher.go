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
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// SourceWatcher proactively invalidates cache entries when the source files
// that fed their build hash change on disk, rather than waiting for the next
// Load to notice a stale build hash. It is strictly an optimization: cache
// validity is always re-checked against the build hash regardless of
// whether the watcher fired, so a host may start it, ignore it, or never
// construct one at all.
type SourceWatcher struct {
	watcher *fsnotify.Watcher
	store   Store
	names   map[string]string // source path -> cache entry name
	done    chan struct{}
}

// NewSourceWatcher constructs a watcher that invalidates `store` entries
// keyed by the name associated with each watched source path.
func NewSourceWatcher(store Store) (*SourceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &SourceWatcher{
		watcher: w,
		store:   store,
		names:   make(map[string]string),
		done:    make(chan struct{}),
	}, nil
}

// Watch registers `path` as feeding the cache entry `name`'s build hash.
func (w *SourceWatcher) Watch(path, name string) error {
	w.names[path] = name
	return w.watcher.Add(path)
}

// Run processes filesystem events until Close is called.  Callers start it
// as a detached goroutine: `go watcher.Run()`.
func (w *SourceWatcher) Run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			name, known := w.names[event.Name]
			if !known {
				continue
			}

			if err := w.store.Invalidate(name); err != nil {
				log.WithError(err).WithField("source", event.Name).Warn("source watcher failed to invalidate cache entry")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			log.WithError(err).Warn("source watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops Run and releases the underlying fsnotify watcher.
func (w *SourceWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
