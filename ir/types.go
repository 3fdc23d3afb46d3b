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

	"github.com/vjpgraph/vjpgraph/types/shapes"
)

// StructuralType is the abstract shape-and-type of an IR value: a
// Tensor, a Tuple of StructuralTypes nested arbitrarily, or a
// non-differentiable Shape/Prim leaf.
type StructuralType interface {
	Node
	// Equal reports whether t and o describe the same structural type.
	Equal(o StructuralType) bool
	// String is a terse human-readable representation.
	String() string
}

// Tensor is a tensor-typed value with a concrete shape and element type.
type Tensor struct {
	Shape shapes.Shape
}

func (*Tensor) node() {}

// Equal implements StructuralType.
func (t *Tensor) Equal(o StructuralType) bool {
	ot, ok := o.(*Tensor)
	return ok && t.Shape.Equal(ot.Shape)
}

// String implements StructuralType.
func (t *Tensor) String() string { return t.Shape.String() }

// IsScalar reports whether t has rank zero.
func (t *Tensor) IsScalar() bool { return t.Shape.IsScalar() }

// Tuple is the type of a value made of a fixed list of nested fields.
type Tuple struct {
	Fields []StructuralType
}

func (*Tuple) node() {}

// Equal implements StructuralType.
func (t *Tuple) Equal(o StructuralType) bool {
	ot, ok := o.(*Tuple)
	if !ok || len(t.Fields) != len(ot.Fields) {
		return false
	}
	for i, f := range t.Fields {
		if !f.Equal(ot.Fields[i]) {
			return false
		}
	}
	return true
}

// String implements StructuralType.
func (t *Tuple) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}

// ShapeType is the (non-differentiable) type of a shape value.
type ShapeType struct{}

func (*ShapeType) node() {}

// Equal implements StructuralType.
func (*ShapeType) Equal(o StructuralType) bool { _, ok := o.(*ShapeType); return ok }

// String implements StructuralType.
func (*ShapeType) String() string { return "shape" }

// PrimType is the (non-differentiable) type of a scalar primitive, such
// as an index or a boolean flag, as opposed to a zero-dim Tensor.
type PrimType struct {
	DType shapes.DType
}

func (*PrimType) node() {}

// Equal implements StructuralType.
func (p *PrimType) Equal(o StructuralType) bool {
	op, ok := o.(*PrimType)
	return ok && p.DType == op.DType
}

// String implements StructuralType.
func (p *PrimType) String() string { return p.DType.String() }

// NestedTensor reports whether t is a Tensor, or a Tuple all of whose
// fields are themselves NestedTensor. Only nested-tensor-typed values
// admit adjoints.
func NestedTensor(t StructuralType) bool {
	switch tt := t.(type) {
	case *Tensor:
		return true
	case *Tuple:
		for _, f := range tt.Fields {
			if !NestedTensor(f) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
