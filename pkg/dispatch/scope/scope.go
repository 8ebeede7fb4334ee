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

// Package scope implements the scope manager (C3): lexical, module and import
// scopes arranged in an arena indexed by ScopeId (rather than pointer-linked,
// to avoid the Scope→FunctionDecl→source_scope ownership cycle), and the
// visibility rules that C4 consults when collecting candidates.
package scope

import (
	"fmt"

	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util"
	"github.com/janus-lang/janus/pkg/util/source"
)

// Visibility controls where a FunctionDecl may be referenced from.
type Visibility int

const (
	// Public declarations are visible from any scope.
	Public Visibility = iota
	// Module declarations are visible only within the declaring module.
	Module
	// Private declarations are visible only within the declaring scope or a
	// descendant of it.
	Private
)

// String renders a Visibility for diagnostics.
func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Module:
		return "module"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// ScopeId indexes a Scope within a Manager's arena.  The zero value denotes
// the root scope: Manager.Root() is always ScopeId(0) after construction.
type ScopeId uint32

// DeclId indexes a FunctionDecl within a Scope's declaration list.  Combined
// with a ScopeId, it gives the stable (ScopeId, DeclId) pair candidates hold
// in place of a raw pointer to the declaration.
type DeclId uint32

// FunctionDecl is a single overload declared within a scope.
type FunctionDecl struct {
	Name           string
	ParameterTypes []types.Id
	ReturnType     types.Id
	Visibility     Visibility
	ModulePath     util.Path
	SourceSpan     source.Span
}

// Arity reports the declared parameter count of this overload.
func (d FunctionDecl) Arity() int {
	return len(d.ParameterTypes)
}

// ErrUnreachable is returned only for corrupted inputs — e.g. a ScopeId that
// does not exist in the arena.  It is never returned for an ordinary
// visibility denial; that is recorded as a rejection reason by C4, not
// raised as an error here.
type ErrUnreachable struct {
	Scope ScopeId
}

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("unreachable scope: %d", e.Scope)
}

// scopeNode is the arena-resident representation of a Scope.
type scopeNode struct {
	name       string
	modulePath util.Path
	parent     util.Option[ScopeId]
	imports    []ScopeId
	decls      []FunctionDecl
}

// Manager owns the arena of all scopes created during one compile.  Per §5,
// a Manager is immutable during any parallel dispatch-table-construction
// phase; it is only ever mutated while building the scope tree up front.
type Manager struct {
	nodes []scopeNode
}

// NewManager constructs a Manager with a single root scope named "root" at
// ScopeId(0).
func NewManager() *Manager {
	m := &Manager{nodes: make([]scopeNode, 0, 1)}
	m.nodes = append(m.nodes, scopeNode{
		name:       "root",
		modulePath: util.NewAbsolutePath("root"),
		parent:     util.None[ScopeId](),
	})

	return m
}

// Root returns the identifier of the root scope.
func (m *Manager) Root() ScopeId {
	return ScopeId(0)
}

// Enter creates a new child scope of `parent` and returns its identifier.
// Mirrors the teacher's Enter: a fresh nested scope inherits nothing but its
// parent link and module path.
func (m *Manager) Enter(parent ScopeId, name string) (ScopeId, error) {
	p, err := m.get(parent)
	if err != nil {
		return 0, err
	}

	id := ScopeId(len(m.nodes))
	m.nodes = append(m.nodes, scopeNode{
		name:       name,
		modulePath: *p.modulePath.Extend(name),
		parent:     util.Some(parent),
	})

	return id, nil
}

// Import records that `imported` is reachable as an import of `from`.
// Duplicate imports of the same scope are harmless; AccessibleScopes elides
// duplicates by identity regardless.
func (m *Manager) Import(from, imported ScopeId) error {
	f, err := m.get(from)
	if err != nil {
		return err
	}

	if _, err := m.get(imported); err != nil {
		return err
	}

	f.imports = append(f.imports, imported)

	return nil
}

// Define appends a FunctionDecl to `scope` and returns its DeclId.
func (m *Manager) Define(scope ScopeId, decl FunctionDecl) (DeclId, error) {
	s, err := m.get(scope)
	if err != nil {
		return 0, err
	}

	id := DeclId(len(s.decls))
	s.decls = append(s.decls, decl)

	return id, nil
}

// Decl returns the declaration identified by (scope, id).
func (m *Manager) Decl(scope ScopeId, id DeclId) (FunctionDecl, error) {
	s, err := m.get(scope)
	if err != nil {
		return FunctionDecl{}, err
	}

	if int(id) >= len(s.decls) {
		return FunctionDecl{}, &ErrUnreachable{Scope: scope}
	}

	return s.decls[id], nil
}

// Declarations returns every (DeclId, FunctionDecl) pair in `scope`, in
// declaration order.
func (m *Manager) Declarations(scope ScopeId) ([]DeclId, []FunctionDecl, error) {
	s, err := m.get(scope)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]DeclId, len(s.decls))
	for i := range s.decls {
		ids[i] = DeclId(i)
	}

	return ids, s.decls, nil
}

// ModulePath returns the module path of `scope`.
func (m *Manager) ModulePath(scope ScopeId) (util.Path, error) {
	s, err := m.get(scope)
	if err != nil {
		return util.Path{}, err
	}

	return s.modulePath, nil
}

// AccessibleScopes yields `from`, its ancestors (innermost first), and its
// imported modules, in that order, with duplicates elided by identity — the
// traversal order Candidate Collector relies on for nearest-scope-first
// enumeration.
func (m *Manager) AccessibleScopes(from ScopeId) ([]ScopeId, error) {
	if _, err := m.get(from); err != nil {
		return nil, err
	}

	seen := make(map[ScopeId]struct{})
	order := make([]ScopeId, 0, 4)

	push := func(id ScopeId) {
		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		order = append(order, id)
	}

	cur := from
	for {
		push(cur)

		node, err := m.get(cur)
		if err != nil {
			return nil, err
		}

		if node.parent.IsEmpty() {
			break
		}

		cur = node.parent.Unwrap()
	}

	node, err := m.get(from)
	if err != nil {
		return nil, err
	}

	for _, imp := range node.imports {
		push(imp)
	}

	return order, nil
}

// IsVisible implements the visibility rule from §4.3: public is always
// visible; module-private is visible only within the declaring module;
// private is visible only within the declaring scope or one of its
// descendants.
func (m *Manager) IsVisible(decl FunctionDecl, declaringScope, fromScope ScopeId) (bool, error) {
	switch decl.Visibility {
	case Public:
		return true, nil
	case Module:
		declMod, err := m.get(declaringScope)
		if err != nil {
			return false, err
		}

		fromMod, err := m.ModulePath(fromScope)
		if err != nil {
			return false, err
		}

		return declMod.modulePath.Equals(fromMod), nil
	case Private:
		return m.isWithin(declaringScope, fromScope)
	default:
		return false, fmt.Errorf("unknown visibility %d", int(decl.Visibility))
	}
}

// isWithin reports whether `from` is `ancestor` or a descendant of it.
func (m *Manager) isWithin(ancestor, from ScopeId) (bool, error) {
	cur := from

	for {
		if cur == ancestor {
			return true, nil
		}

		node, err := m.get(cur)
		if err != nil {
			return false, err
		}

		if node.parent.IsEmpty() {
			return false, nil
		}

		cur = node.parent.Unwrap()
	}
}

func (m *Manager) get(id ScopeId) (*scopeNode, error) {
	if int(id) >= len(m.nodes) {
		return nil, &ErrUnreachable{Scope: id}
	}

	return &m.nodes[id], nil
}
