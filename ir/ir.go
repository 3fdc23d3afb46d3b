// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ir defines the tensor intermediate representation that the
// reverse-mode AD pass (package revad) operates on: a straight-line
// dataflow region of typed variable bindings, free of control flow.
//
// The structure is modeled after the teacher package's build/ir, trimmed
// to the data model the AD pass needs: no source positions, no general
// type checker, no control flow.
package ir

// Node marks a structure as belonging to this IR tree. It prevents
// external packages from implementing the interfaces below with
// arbitrary types.
type Node interface {
	node()
}

// VarKind distinguishes a variable scoped to its region (Intermediate)
// from one whose binding escapes the region as part of its result
// (Output).
type VarKind int

const (
	// Intermediate variables are visible only within their dataflow region.
	Intermediate VarKind = iota
	// Output variables are visible outside their dataflow region.
	Output
)

func (k VarKind) String() string {
	if k == Output {
		return "output"
	}
	return "intermediate"
}

// Variable is an IR identifier with a unique identity (the pointer
// itself), a display name, and a structural type. Two distinct
// *Variable values are never equal even if they share a name and type.
type Variable struct {
	Name string
	Type StructuralType
	Kind VarKind
}

func (*Variable) node() {}

// NewVariable allocates a fresh variable. Each call returns a distinct
// identity, even if name and typ are repeated.
func NewVariable(name string, typ StructuralType, kind VarKind) *Variable {
	return &Variable{Name: name, Type: typ, Kind: kind}
}
