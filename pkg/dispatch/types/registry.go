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

// Package types implements the type registry (C1) and conversion registry
// (C2) used throughout the dispatch resolution pipeline: a flat table of
// stable type identifiers, their kinds and specificity scores, and a
// catalogue of implicit conversions between them.
package types

import (
	"fmt"
	"slices"
)

// Id is a stable, dense, monotonically allocated type identifier.  A reserved
// range names the primitive types baked into every registry at construction.
type Id uint32

// Reserved identifiers, always present in a freshly constructed Registry.
const (
	Invalid Id = 0
	I32     Id = 1
	F64     Id = 2
	Bool    Id = 3
	String  Id = 4
)

// reservedCount is the number of identifiers consumed by the reserved range.
const reservedCount = 5

// Kind classifies a Type.  Specificity is a function of Kind alone (see
// Specificity below), never of the type's name or parameters.
type Kind int

// The kinds a Type may take, ordered here only for readability — the actual
// specificity ordering is given by the Specificity function, not by the order
// of this declaration.
const (
	Primitive Kind = iota
	Enum
	Struct
	GenericInstance
	Function
	GenericParam
)

// String renders a Kind for diagnostics and logging.
func (k Kind) String() string {
	switch k {
	case Primitive:
		return "primitive"
	case Enum:
		return "enum"
	case Struct:
		return "struct"
	case GenericInstance:
		return "generic_instance"
	case Function:
		return "function"
	case GenericParam:
		return "generic_param"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Specificity returns the base specificity score for a Kind, per §3 of the
// dispatch specification.  Higher scores are more specific.
func Specificity(k Kind) uint32 {
	switch k {
	case GenericParam:
		return 50
	case Primitive:
		return 100
	case Enum:
		return 150
	case Struct:
		return 200
	case GenericInstance:
		return 250
	case Function:
		return 300
	default:
		panic(fmt.Sprintf("unknown type kind %d", int(k)))
	}
}

// Type describes a single registered type.  GenericParams holds the
// identifiers of a generic instance's concrete type arguments (empty for
// every other kind).
type Type struct {
	Id            Id
	Name          string
	Kind          Kind
	GenericParams []Id
}

// Equals implements the data model's equality rule: two types are equal iff
// their ids match and, for generic instances, their parameter lists are
// pointwise equal.  Because ids are assigned uniquely per (name, kind,
// params) by the Registry, comparing ids already implies the parameter-list
// comparison — this method exists to make that invariant explicit and
// checkable independent of how ids were obtained.
func (t Type) Equals(other Type) bool {
	if t.Id != other.Id {
		return false
	}

	return slices.Equal(t.GenericParams, other.GenericParams)
}

// ErrUnknownType is returned when a lookup misses the registry entirely.
type ErrUnknownType struct {
	// Id is set when the lookup was by identifier.
	Id Id
	// Name is set when the lookup was by name.
	Name string
}

func (e *ErrUnknownType) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown type: %q", e.Name)
	}

	return fmt.Sprintf("unknown type: id %d", e.Id)
}

// Registry assigns stable type identifiers and answers equality, subtyping,
// and specificity queries.  A Registry is not safe for concurrent writers;
// per §5 it is immutable during any parallel dispatch-table-construction
// phase.
type Registry struct {
	byId   []Type
	byName map[string]Id
}

// NewRegistry constructs a registry pre-populated with the reserved
// primitives (invalid, i32, f64, bool, string) at their fixed identifiers.
func NewRegistry() *Registry {
	r := &Registry{
		byId:   make([]Type, 0, reservedCount),
		byName: make(map[string]Id, reservedCount),
	}

	r.pushReserved(Invalid, "invalid", Primitive)
	r.pushReserved(I32, "i32", Primitive)
	r.pushReserved(F64, "f64", Primitive)
	r.pushReserved(Bool, "bool", Primitive)
	r.pushReserved(String, "string", Primitive)

	return r
}

func (r *Registry) pushReserved(id Id, name string, kind Kind) {
	r.byId = append(r.byId, Type{Id: id, Name: name, Kind: kind})
	r.byName[name] = id
}

// Register assigns a new TypeId to (name, kind, genericParams), or returns
// the identifier already assigned to that name.  Registration is idempotent
// on name: calling Register twice with the same name returns the same id
// regardless of what kind or params are passed the second time, and
// identifier allocation is always monotonic — re-registering never reuses or
// rewinds an id.
func (r *Registry) Register(name string, kind Kind, genericParams ...Id) Id {
	if id, ok := r.byName[name]; ok {
		return id
	}

	id := Id(len(r.byId))
	r.byId = append(r.byId, Type{
		Id:            id,
		Name:          name,
		Kind:          kind,
		GenericParams: slices.Clone(genericParams),
	})
	r.byName[name] = id

	return id
}

// GetType looks up a type by identifier.
func (r *Registry) GetType(id Id) (Type, error) {
	if int(id) >= len(r.byId) {
		return Type{}, &ErrUnknownType{Id: id}
	}

	return r.byId[id], nil
}

// GetByName looks up a type by name.
func (r *Registry) GetByName(name string) (Type, error) {
	id, ok := r.byName[name]
	if !ok {
		return Type{}, &ErrUnknownType{Name: name}
	}

	return r.byId[id], nil
}

// Equals determines whether two identifiers denote the same type.
func (r *Registry) Equals(a, b Id) bool {
	if a == b {
		return true
	}

	ta, errA := r.GetType(a)
	tb, errB := r.GetType(b)

	if errA != nil || errB != nil {
		return false
	}

	return ta.Equals(tb)
}

// IsSubtypeOf reports whether `sub` is a subtype of `sup`.  Subtyping is
// currently identity-only, per the open question in §9 of the spec: nominal
// hierarchies are an extension point, not yet implemented.  Any future
// extension must preserve the monotonicity of ids documented on Register.
func (r *Registry) IsSubtypeOf(sub, sup Id) bool {
	return r.Equals(sub, sup)
}

// Specificity returns the specificity score of a registered type.
func (r *Registry) Specificity(id Id) (uint32, error) {
	t, err := r.GetType(id)
	if err != nil {
		return 0, err
	}

	return Specificity(t.Kind), nil
}

// Len returns the number of types currently registered, including the
// reserved primitives.
func (r *Registry) Len() int {
	return len(r.byId)
}
