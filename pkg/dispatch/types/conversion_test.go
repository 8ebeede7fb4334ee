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
package types

import (
	"testing"

	"github.com/janus-lang/janus/pkg/util/assert"
)

func TestConversionRegistry_00(t *testing.T) {
	r := NewConversionRegistry()
	r.Define(I32, F64, 10, false)

	c, ok := r.Find(I32, F64)
	assert.True(t, ok, "expected a defined conversion to be found")
	assert.Equal(t, uint32(10), c.Cost)
	assert.Equal(t, false, c.IsLossy)
}

func TestConversionRegistry_01(t *testing.T) {
	r := NewConversionRegistry()

	if _, ok := r.Find(I32, Bool); ok {
		t.Fatalf("no conversion was defined from i32 to bool")
	}
}

func TestConversionRegistry_02(t *testing.T) {
	r := NewConversionRegistry()
	r.Define(I32, F64, 10, false)

	// Identical types at a position never require a registry lookup.
	path, ok := r.Path([]Id{I32, F64}, []Id{I32, F64})
	assert.True(t, ok, "all-identical positions always succeed")
	assert.Equal(t, uint32(0), path[0].Cost)
	assert.Equal(t, uint32(0), path[1].Cost)
}

func TestConversionRegistry_03(t *testing.T) {
	r := NewConversionRegistry()
	r.Define(I32, F64, 10, false)

	path, ok := r.Path([]Id{I32, Bool}, []Id{F64, Bool})
	assert.Equal(t, true, ok)
	assert.Equal(t, uint32(10), path[0].Cost)
	assert.Equal(t, uint32(0), path[1].Cost)
}

func TestConversionRegistry_04(t *testing.T) {
	r := NewConversionRegistry()

	// No transitive closure: i32->bool is undefined even though i32->f64
	// and f64->bool might both exist.
	r.Define(I32, F64, 1, false)
	r.Define(F64, Bool, 1, false)

	if _, ok := r.Find(I32, Bool); ok {
		t.Fatalf("conversion registry must not compute transitive closures")
	}

	if _, ok := r.Path([]Id{I32}, []Id{Bool}); ok {
		t.Fatalf("a path with no direct conversion at a position must fail entirely")
	}
}
