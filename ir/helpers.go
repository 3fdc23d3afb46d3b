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

// Helper constructors for the handful of calls the AD core itself
// synthesizes while building adjoint expressions (as opposed to the
// forward ops consulted through the gradient registry).

// OnesLike builds ones(shape=ref.shape, dtype=ref.dtype), named
// ones_like after the variable it seeds from.
func OnesLike(ref Expr) *CallExpr {
	return &CallExpr{Op: "ones_like", Args: []Expr{ref}, ResTy: ref.Type()}
}

// Zeros builds zeros(shape, dtype) for typ, a Tensor or a nested Tuple
// of Tensors.
func Zeros(typ StructuralType) *CallExpr {
	return &CallExpr{Op: "zeros", ResTy: typ}
}

// Add builds add(s1, s2); s1 and s2 must have the same structural type.
func Add(s1, s2 Expr) *CallExpr {
	return &CallExpr{Op: "add", Args: []Expr{s1, s2}, ResTy: s1.Type()}
}

// Neg builds neg(e).
func Neg(e Expr) *CallExpr {
	return &CallExpr{Op: "neg", Args: []Expr{e}, ResTy: e.Type()}
}

// Multiply builds the broadcasting multiply(a, b), typed after whichever
// of a, b is not a scalar tensor (broadcasting never narrows a shape).
func Multiply(a, b Expr) *CallExpr {
	return &CallExpr{Op: "multiply", Args: []Expr{a, b}, ResTy: broadcastType(a.Type(), b.Type())}
}

// CollapseSumLike builds collapse_sum_like(v, target): the adjoint of a
// broadcast, reducing v down to target's shape by summation.
func CollapseSumLike(v, target Expr) *CallExpr {
	return &CallExpr{Op: "collapse_sum_like", Args: []Expr{v, target}, ResTy: target.Type()}
}

// Reshape builds reshape(e) back to typ.
func Reshape(e Expr, typ StructuralType) *CallExpr {
	return &CallExpr{Op: "reshape", Args: []Expr{e}, ResTy: typ}
}

// broadcastType picks the wider of two tensor types for the result of a
// broadcasting binary op: the non-scalar one, or a if both are scalar or
// both are non-scalar (forward construction is assumed well-typed).
func broadcastType(a, b StructuralType) StructuralType {
	at, aok := a.(*Tensor)
	bt, bok := b.(*Tensor)
	if aok && bok {
		if at.IsScalar() && !bt.IsScalar() {
			return b
		}
		return a
	}
	return a
}
