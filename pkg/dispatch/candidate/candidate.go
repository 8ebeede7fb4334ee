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

// Package candidate implements the candidate collector (C4): enumerating all
// name-matching function declarations visible at a call site and recording,
// for each, why it was rejected (if it was).
package candidate

import (
	"fmt"

	"github.com/janus-lang/janus/pkg/dispatch/scope"
)

// RejectionReason is a tagged variant, per the "polymorphism over rejection
// reasons" design note: exactly one of the embedded payload fields is
// meaningful, selected by Kind.
type RejectionReason struct {
	Kind RejectionKind

	// VisibilityViolation payload.
	RequiredVisibility scope.Visibility
	ActualVisibility   scope.Visibility
	ModuleContext      string

	// ArityMismatch payload.
	ExpectedArity int
	ActualArity   int

	// NotFound payload.
	SearchedName   string
	SearchedScopes []string
}

// RejectionKind identifies which payload of a RejectionReason is populated.
type RejectionKind int

const (
	// VisibilityViolation means the declaration exists but is not visible
	// from the call site's scope.
	VisibilityViolation RejectionKind = iota
	// ArityMismatch means the declaration's parameter count does not match
	// the call's argument count.
	ArityMismatch
	// NotFound means the walk produced no declaration at all for the name.
	NotFound
	// TypeMismatch means no viable conversion path exists; C6 demotes a
	// candidate to this reason after conversion-path computation fails — C4
	// never produces it directly.
	TypeMismatch
)

// String renders a RejectionKind for diagnostics.
func (k RejectionKind) String() string {
	switch k {
	case VisibilityViolation:
		return "visibility_violation"
	case ArityMismatch:
		return "arity_mismatch"
	case NotFound:
		return "not_found"
	case TypeMismatch:
		return "type_mismatch"
	default:
		return fmt.Sprintf("rejection(%d)", int(k))
	}
}

// Candidate is one function declaration considered for a call site.
type Candidate struct {
	Scope        scope.ScopeId
	Decl         scope.DeclId
	Function     scope.FunctionDecl
	SourceScope  scope.ScopeId
	ImportPath   string
	VisibilityOf scope.Visibility
	RejectionOf  *RejectionReason
}

// Viable reports whether this candidate survived every filter.
func (c Candidate) Viable() bool {
	return c.RejectionOf == nil
}

// CandidateSet holds every candidate produced for one (name, arity) call
// site, along with the viable/rejected partition finalize() computes.
type CandidateSet struct {
	FunctionName string
	CallArity    int

	All      []Candidate
	Viable   []Candidate
	Rejected []Candidate

	finalized bool
}

// finalize partitions All into Viable and Rejected.  Calling finalize
// multiple times is idempotent: it always recomputes from All rather than
// appending, so repeated calls never grow the derived slices.
func (s *CandidateSet) finalize() {
	s.Viable = s.Viable[:0]
	s.Rejected = s.Rejected[:0]

	for _, c := range s.All {
		if c.Viable() {
			s.Viable = append(s.Viable, c)
		} else {
			s.Rejected = append(s.Rejected, c)
		}
	}

	s.finalized = true
}

// Ambiguous reports whether more than one candidate survived filtering —
// true only after Finalize has run.
func (s *CandidateSet) Ambiguous() bool {
	return s.finalized && len(s.Viable) > 1
}

// Collector walks accessible scopes to build a CandidateSet for a call site.
type Collector struct {
	scopes *scope.Manager
}

// NewCollector constructs a Collector over the given scope manager.
func NewCollector(scopes *scope.Manager) *Collector {
	return &Collector{scopes: scopes}
}

// Collect enumerates every declaration named `name` visible from `from`,
// applying the visibility filter then the arity filter in order, and
// returns a finalized CandidateSet.  A candidate that fails both filters
// keeps the visibility rejection, since it was applied first and later
// filters never overwrite an existing rejection.
func (c *Collector) Collect(from scope.ScopeId, name string, arity int) (*CandidateSet, error) {
	set := &CandidateSet{FunctionName: name, CallArity: arity}

	accessible, err := c.scopes.AccessibleScopes(from)
	if err != nil {
		return nil, err
	}

	searchedScopes := make([]string, 0, len(accessible))

	for _, sc := range accessible {
		path, err := c.scopes.ModulePath(sc)
		if err != nil {
			return nil, err
		}

		searchedScopes = append(searchedScopes, path.String())

		ids, decls, err := c.scopes.Declarations(sc)
		if err != nil {
			return nil, err
		}

		for i, decl := range decls {
			if decl.Name != name {
				continue
			}

			cand := Candidate{
				Scope:        sc,
				Decl:         ids[i],
				Function:     decl,
				SourceScope:  from,
				VisibilityOf: decl.Visibility,
			}

			visible, err := c.scopes.IsVisible(decl, sc, from)
			if err != nil {
				return nil, err
			}

			switch {
			case !visible:
				required, err := c.requiredVisibility(sc, from)
				if err != nil {
					return nil, err
				}

				cand.RejectionOf = &RejectionReason{
					Kind:               VisibilityViolation,
					RequiredVisibility: required,
					ActualVisibility:   decl.Visibility,
					ModuleContext:      searchedScopes[len(searchedScopes)-1],
				}
			case decl.Arity() != arity:
				cand.RejectionOf = &RejectionReason{
					Kind:          ArityMismatch,
					ExpectedArity: arity,
					ActualArity:   decl.Arity(),
				}
			}

			set.All = append(set.All, cand)
		}
	}

	if len(set.All) == 0 {
		set.All = append(set.All, Candidate{
			SourceScope: from,
			RejectionOf: &RejectionReason{
				Kind:           NotFound,
				SearchedName:   name,
				SearchedScopes: searchedScopes,
			},
		})
	}

	set.finalize()

	return set, nil
}

// requiredVisibility determines the least permissive Visibility that would
// have made a private declaration visible from `from` — module-scoped if
// `from` shares the declaring scope's module, public otherwise — for the
// VisibilityViolation payload's RequiredVisibility field. Only called once
// IsVisible has already rejected the declaration, so the answer is always
// strictly more permissive than the declaration's actual visibility.
func (c *Collector) requiredVisibility(declaringScope, from scope.ScopeId) (scope.Visibility, error) {
	moduleVisible, err := c.scopes.IsVisible(scope.FunctionDecl{Visibility: scope.Module}, declaringScope, from)
	if err != nil {
		return 0, err
	}

	if moduleVisible {
		return scope.Module, nil
	}

	return scope.Public, nil
}

// Finalize exposes CandidateSet.finalize to callers outside the package —
// used by C6 after it demotes candidates with type_mismatch.
func Finalize(set *CandidateSet) {
	set.finalize()
}
