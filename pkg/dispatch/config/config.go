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

// Package config holds DispatchConfig, validated before a compile job
// starts, mirroring the teacher's CompilationConfig.
package config

import (
	"github.com/go-playground/validator/v10"
)

// CacheBackend selects which Store implementation pkg/dispatch/cache uses.
type CacheBackend string

// The cache backends a DispatchConfig may select.
const (
	CacheBackendFile   CacheBackend = "file"
	CacheBackendBadger CacheBackend = "badger"
)

// DispatchConfig configures one compile job's dispatch resolution and
// codegen pass.
type DispatchConfig struct {
	// CacheDir is where dispatch tables are cached.
	CacheDir string `validate:"required"`
	// CacheBackend selects the on-disk representation.
	CacheBackend CacheBackend `validate:"required,oneof=file badger"`
	// DecisionTreeThreshold is the entry count at which a decision tree is
	// built (§4.8 default is 8). It is validated here only: table.Build does
	// not read it and always uses its own threshold of 8.
	DecisionTreeThreshold int `validate:"gte=1"`
	// WatchSources records whether sources are watched. No code in this
	// module reads it; the Pipeline never starts a SourceWatcher.
	WatchSources bool
	// Verbose records verbose output. The CLI's --verbose flag sets the log
	// level directly and does not set this field.
	Verbose bool
}

// Default returns a DispatchConfig with the spec's documented defaults.
func Default() DispatchConfig {
	return DispatchConfig{
		CacheDir:              ".janus-cache",
		CacheBackend:          CacheBackendFile,
		DecisionTreeThreshold: 8,
	}
}

var validate = validator.New()

// Validate checks c against its struct tags, returning a
// validator.ValidationErrors on failure.
func (c DispatchConfig) Validate() error {
	return validate.Struct(c)
}
