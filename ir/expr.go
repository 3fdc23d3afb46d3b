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

package ir

import (
	"fmt"
	"strings"
)

// Expr is the right-hand side of a binding: a variable reference, a
// tuple construction, a tuple projection, or an operator call.
type Expr interface {
	Node
	// Type is the structural type this expression produces.
	Type() StructuralType
	// String is a terse human-readable representation.
	String() string
}

// VarExpr is a reference to a previously bound variable.
type VarExpr struct {
	Ref *Variable
}

func (*VarExpr) node()                  {}
func (e *VarExpr) Type() StructuralType { return e.Ref.Type }
func (e *VarExpr) String() string       { return e.Ref.Name }

// TupleExpr constructs a tuple from its field expressions.
type TupleExpr struct {
	Elems []Expr
}

func (*TupleExpr) node() {}

// Type is the Tuple of the element types, computed from Elems.
func (e *TupleExpr) Type() StructuralType {
	fields := make([]StructuralType, len(e.Elems))
	for i, el := range e.Elems {
		fields[i] = el.Type()
	}
	return &Tuple{Fields: fields}
}

func (e *TupleExpr) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

// ProjectExpr projects the Index-th field out of a tuple-typed
// expression ("t.k").
type ProjectExpr struct {
	Tuple Expr
	Index int
}

func (*ProjectExpr) node() {}

func (e *ProjectExpr) Type() StructuralType {
	tt, ok := e.Tuple.Type().(*Tuple)
	if !ok || e.Index < 0 || e.Index >= len(tt.Fields) {
		return &InvalidType{}
	}
	return tt.Fields[e.Index]
}

func (e *ProjectExpr) String() string {
	return fmt.Sprintf("%s.%d", e.Tuple.String(), e.Index)
}

// CallExpr is a call to an operator, either a forward primitive (add,
// mul, sum, ...) consulted through the gradient registry, or one of the
// handful of adjoint-construction helpers the AD core itself emits
// (ones_like, zeros, collapse_sum_like, ...).
type CallExpr struct {
	Op    string
	Args  []Expr
	ResTy StructuralType
}

func (*CallExpr) node()                  {}
func (e *CallExpr) Type() StructuralType { return e.ResTy }

func (e *CallExpr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Op, strings.Join(parts, ", "))
}

// InvalidType is assigned when a structural type cannot be computed,
// e.g. a projection whose tuple has no field at Index.
type InvalidType struct{}

func (*InvalidType) node()                       {}
func (*InvalidType) Equal(o StructuralType) bool { _, ok := o.(*InvalidType); return ok }
func (*InvalidType) String() string              { return "<invalid>" }
