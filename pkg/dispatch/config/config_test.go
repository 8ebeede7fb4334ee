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
package config

import (
	"testing"

	"github.com/janus-lang/janus/pkg/util/assert"
)

func TestDefault_00_IsValid(t *testing.T) {
	c := Default()
	assert.Equal(t, nil, c.Validate())
	assert.Equal(t, CacheBackendFile, c.CacheBackend)
	assert.Equal(t, 8, c.DecisionTreeThreshold)
}

func TestValidate_00_MissingCacheDirFails(t *testing.T) {
	c := Default()
	c.CacheDir = ""

	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation to fail for an empty CacheDir")
	}
}

func TestValidate_01_InvalidCacheBackendFails(t *testing.T) {
	c := Default()
	c.CacheBackend = "nope"

	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation to fail for an unrecognized cache backend")
	}
}

func TestValidate_02_NonPositiveThresholdFails(t *testing.T) {
	c := Default()
	c.DecisionTreeThreshold = 0

	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation to fail for a non-positive decision tree threshold")
	}
}

func TestValidate_03_BadgerBackendIsValid(t *testing.T) {
	c := Default()
	c.CacheBackend = CacheBackendBadger

	assert.Equal(t, nil, c.Validate())
}
