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

// Package signature implements the signature analyzer (C5): lowering a
// FunctionDecl to the canonical Implementation form the resolver and codegen
// stages operate on.
package signature

import (
	"fmt"

	"github.com/janus-lang/janus/pkg/dispatch/scope"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/source"
)

// Effect names an observable side effect a function may perform.  The set is
// open-ended and carried only as data; whether effects participate in
// resolution at all is an open question (spec §9) left undecided — today
// they are informational only.
type Effect string

// FunctionId is the stable identity of an Implementation: (name, module,
// disambiguator).  Module keeps implementations from different modules
// apart; Disambiguator counts up per (name, module) pair, so overloads of one
// name within the same module remain distinct identities.
type FunctionId struct {
	Name          string
	Module        string
	Disambiguator uint32
}

// String renders a FunctionId for diagnostics and logging.
func (f FunctionId) String() string {
	return fmt.Sprintf("%s#%s.%d", f.Name, f.Module, f.Disambiguator)
}

// Implementation is the canonicalized form of a FunctionDecl used throughout
// resolution and codegen.
type Implementation struct {
	FunctionId      FunctionId
	ParamTypeIds    []types.Id
	ReturnTypeId    types.Id
	Effects         []Effect
	SpecificityRank uint32
	SourceSpan      source.Span
}

// Arity returns the number of parameters of this implementation.
func (i Implementation) Arity() int {
	return len(i.ParamTypeIds)
}

// Analyzer lowers FunctionDecls into Implementations, assigning monotone
// disambiguators per (name, module) pair it has seen.
type Analyzer struct {
	registry *types.Registry
	seen     map[string]uint32
}

// NewAnalyzer constructs an Analyzer backed by the given type registry.
func NewAnalyzer(registry *types.Registry) *Analyzer {
	return &Analyzer{registry: registry, seen: make(map[string]uint32)}
}

// Analyze lowers `decl`, declared in module `modulePath`, into an
// Implementation whose span is decl.SourceSpan.  Every TypeId referenced must already
// exist in the registry — analysis fails loudly (via the registry's
// ErrUnknownType) rather than silently registering unseen types, since the
// signature analyzer only canonicalizes what C1 has already admitted.
func (a *Analyzer) Analyze(decl scope.FunctionDecl, modulePath string, effects ...Effect) (Implementation, error) {
	returnKind, err := a.kindOf(decl.ReturnType)
	if err != nil {
		return Implementation{}, err
	}

	rank := types.Specificity(returnKind)

	for _, pt := range decl.ParameterTypes {
		kind, err := a.kindOf(pt)
		if err != nil {
			return Implementation{}, err
		}

		rank += types.Specificity(kind)
	}

	key := decl.Name + "\x00" + modulePath
	disambiguator := a.seen[key]
	a.seen[key] = disambiguator + 1

	return Implementation{
		FunctionId: FunctionId{
			Name:          decl.Name,
			Module:        modulePath,
			Disambiguator: disambiguator,
		},
		ParamTypeIds:    append([]types.Id(nil), decl.ParameterTypes...),
		ReturnTypeId:    decl.ReturnType,
		Effects:         effects,
		SpecificityRank: rank,
		SourceSpan:      decl.SourceSpan,
	}, nil
}

func (a *Analyzer) kindOf(id types.Id) (types.Kind, error) {
	t, err := a.registry.GetType(id)
	if err != nil {
		return 0, err
	}

	return t.Kind, nil
}
