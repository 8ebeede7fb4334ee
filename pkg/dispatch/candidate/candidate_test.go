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
package candidate

import (
	"testing"

	"github.com/janus-lang/janus/pkg/dispatch/scope"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/assert"
)

func TestCollector_00_NotFound(t *testing.T) {
	m := scope.NewManager()
	c := NewCollector(m)

	set, err := c.Collect(m.Root(), "missing", 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(set.Viable))
	assert.Equal(t, 1, len(set.Rejected))
	assert.Equal(t, NotFound, set.Rejected[0].RejectionOf.Kind)
}

func TestCollector_01_ArityMismatch(t *testing.T) {
	m := scope.NewManager()
	root := m.Root()

	m.Define(root, scope.FunctionDecl{
		Name:           "f",
		ParameterTypes: []types.Id{types.I32},
		ReturnType:     types.I32,
		Visibility:     scope.Public,
	})

	c := NewCollector(m)
	set, err := c.Collect(root, "f", 2)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(set.Viable))
	assert.Equal(t, 1, len(set.Rejected))
	assert.Equal(t, ArityMismatch, set.Rejected[0].RejectionOf.Kind)
	// Called with 2 arguments against a 1-parameter declaration: expected is
	// the call-site arity, actual is the declaration's arity.
	assert.Equal(t, 2, set.Rejected[0].RejectionOf.ExpectedArity)
	assert.Equal(t, 1, set.Rejected[0].RejectionOf.ActualArity)
}

func TestCollector_02_VisibilityBeatsArity(t *testing.T) {
	m := scope.NewManager()
	root := m.Root()
	a, _ := m.Enter(root, "a")
	b, _ := m.Enter(root, "b")
	// b imports a so the declaration is reachable at all.
	m.Import(b, a)

	// Private, and arity-mismatched too: the visibility rejection must win
	// since it is applied first and never overwritten.
	m.Define(a, scope.FunctionDecl{
		Name:           "f",
		ParameterTypes: []types.Id{types.I32, types.I32},
		ReturnType:     types.I32,
		Visibility:     scope.Private,
	})

	c := NewCollector(m)
	set, err := c.Collect(b, "f", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(set.Rejected))
	assert.Equal(t, VisibilityViolation, set.Rejected[0].RejectionOf.Kind)
	// b is outside a's module entirely, so even module visibility would not
	// have been enough: the required level is public.
	assert.Equal(t, scope.Public, set.Rejected[0].RejectionOf.RequiredVisibility)
	assert.Equal(t, scope.Private, set.Rejected[0].RejectionOf.ActualVisibility)
}

func TestCollector_05_VisibilityViolationRequiresOnlyModule(t *testing.T) {
	m := scope.NewManager()
	root := m.Root()
	// Two scopes sharing the module path "root.mod" (same name, same
	// parent) but neither an ancestor of the other: module-level visibility
	// is keyed on module path equality, not scope-tree ancestry. modB
	// imports modA so the declaration is reachable at all.
	modA, _ := m.Enter(root, "mod")
	modB, _ := m.Enter(root, "mod")
	m.Import(modB, modA)

	m.Define(modA, scope.FunctionDecl{
		Name:           "f",
		ParameterTypes: []types.Id{types.I32},
		ReturnType:     types.I32,
		Visibility:     scope.Private,
	})

	c := NewCollector(m)
	set, err := c.Collect(modB, "f", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(set.Rejected))
	assert.Equal(t, VisibilityViolation, set.Rejected[0].RejectionOf.Kind)
	assert.Equal(t, scope.Module, set.Rejected[0].RejectionOf.RequiredVisibility)
	assert.Equal(t, scope.Private, set.Rejected[0].RejectionOf.ActualVisibility)
}

func TestCollector_03_Viable(t *testing.T) {
	m := scope.NewManager()
	root := m.Root()

	m.Define(root, scope.FunctionDecl{
		Name:           "f",
		ParameterTypes: []types.Id{types.I32},
		ReturnType:     types.I32,
		Visibility:     scope.Public,
	})

	c := NewCollector(m)
	set, err := c.Collect(root, "f", 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(set.Viable))
	assert.True(t, !set.Ambiguous(), "a single viable candidate is never ambiguous")
}

func TestCollector_04_Ambiguous(t *testing.T) {
	m := scope.NewManager()
	root := m.Root()

	decl := scope.FunctionDecl{
		Name:           "f",
		ParameterTypes: []types.Id{types.I32},
		ReturnType:     types.I32,
		Visibility:     scope.Public,
	}

	m.Define(root, decl)
	m.Define(root, decl)

	c := NewCollector(m)
	set, err := c.Collect(root, "f", 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(set.Viable))
	assert.True(t, set.Ambiguous(), "two viable candidates for the same call are ambiguous at the collector level")
}
