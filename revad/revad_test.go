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

package revad

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vjpgraph/vjpgraph/ir"
	"github.com/vjpgraph/vjpgraph/types/shapes"
)

// structuralTypeComparer lets cmp.Diff compare ir.StructuralType values
// through their own Equal method, since the interface's implementations
// carry no exported identity beyond their structural content.
var structuralTypeComparer = cmp.Comparer(func(a, b ir.StructuralType) bool {
	return a.Equal(b)
})

func tensorType() *ir.Tensor {
	return &ir.Tensor{Shape: shapes.Make(shapes.Float32, 5, 5)}
}

func scalarType() *ir.Tensor {
	return &ir.Tensor{Shape: shapes.Scalar(shapes.Float32)}
}

func varRef(v *ir.Variable) *ir.VarExpr { return &ir.VarExpr{Ref: v} }

func call(op string, resTy ir.StructuralType, args ...ir.Expr) *ir.CallExpr {
	return &ir.CallExpr{Op: op, Args: args, ResTy: resTy}
}

// buildModule wraps a hand-built function in a fresh module under the
// name "main".
func buildModule(fn *ir.FuncDecl) *ir.Module {
	fn.GlobalSymbol = "main"
	return ir.NewModule().WithFunc(fn)
}

// TestSumOfAdd differentiates lv1 = sum(lv0), lv0 = x + y with respect
// to both x and y.
func TestSumOfAdd(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	y := ir.NewVariable("y", tensorType(), ir.Intermediate)
	lv0 := ir.NewVariable("lv0", tensorType(), ir.Intermediate)
	lv1 := ir.NewVariable("lv1", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x, y},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: lv0, Expr: call("add", tensorType(), varRef(x), varRef(y))},
				{Var: lv1, Expr: call("sum", scalarType(), varRef(lv0))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv1)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", []string{"x", "y"})
	require.NoError(t, err)

	adjFn, ok := out.FuncByName("main_adjoint")
	require.True(t, ok)

	want := "func main_adjoint(x (f32)[5 5], y (f32)[5 5]) ((f32), ((f32)[5 5], (f32)[5 5])) {\n" +
		"\tlv0 = add(x, y)\n" +
		"\tlv1 = sum(lv0)\n" +
		"\tlv1_adjoint = ones_like(lv1)\n" +
		"\ttmp = ones_like(lv0)\n" +
		"\tlv0_adjoint = multiply(lv1_adjoint, tmp)\n" +
		"\tx_adjoint = collapse_sum_like(lv0_adjoint, x)\n" +
		"\ty_adjoint = collapse_sum_like(lv0_adjoint, y)\n" +
		"\treturn (lv1, (x_adjoint, y_adjoint))\n}"
	require.Equal(t, want, adjFn.String())

	// The original function is untouched.
	orig, ok := mod.FuncByName("main")
	require.True(t, ok)
	require.Same(t, fn, orig)
	require.Len(t, orig.Body.Bindings, 2)
}

// TestPassResultTypeIsScalarPairedWithInputAdjoints checks the generated
// function's declared result type structurally, independent of the
// exact tree the test happens to build it as.
func TestPassResultTypeIsScalarPairedWithInputAdjoints(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	y := ir.NewVariable("y", tensorType(), ir.Intermediate)
	lv0 := ir.NewVariable("lv0", tensorType(), ir.Intermediate)
	lv1 := ir.NewVariable("lv1", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x, y},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: lv0, Expr: call("add", tensorType(), varRef(x), varRef(y))},
				{Var: lv1, Expr: call("sum", scalarType(), varRef(lv0))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv1)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", []string{"x"})
	require.NoError(t, err)
	adjFn, _ := out.FuncByName("main_adjoint")

	var want ir.StructuralType = &ir.Tuple{Fields: []ir.StructuralType{
		scalarType(),
		&ir.Tuple{Fields: []ir.StructuralType{tensorType()}},
	}}
	if diff := cmp.Diff(want, adjFn.ResultType, structuralTypeComparer); diff != "" {
		t.Errorf("main_adjoint result type mismatch (-want +got):\n%s", diff)
	}
}

// TestUnusedInput checks that a requested gradient input that never
// contributes to the target still gets a well-typed zero adjoint.
func TestUnusedInput(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	y := ir.NewVariable("y", tensorType(), ir.Intermediate)
	lv0 := ir.NewVariable("lv0", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x, y},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: lv0, Expr: call("sum", scalarType(), varRef(x))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv0)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", []string{"x", "y"})
	require.NoError(t, err)
	adjFn, _ := out.FuncByName("main_adjoint")

	var yAdjExpr ir.Expr
	for _, b := range adjFn.Body.Bindings {
		if b.Var.Name == "y_adjoint" {
			yAdjExpr = b.Expr
		}
	}
	require.NotNil(t, yAdjExpr, "y_adjoint must be bound even though y is unused")
	yCall, ok := yAdjExpr.(*ir.CallExpr)
	require.True(t, ok)
	require.Equal(t, "zeros", yCall.Op)
	require.True(t, yCall.Type().Equal(tensorType()))
}

// TestAliasingChain covers a = x; b = a; lv = sum(b); return lv.
// Aliasing through a and b must not duplicate the ones_like
// node sum's gradient produces for b: it is bound once and referenced
// (not re-embedded) by each alias hop on the way to x's adjoint.
func TestAliasingChain(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	a := ir.NewVariable("a", tensorType(), ir.Intermediate)
	b := ir.NewVariable("b", tensorType(), ir.Intermediate)
	lv := ir.NewVariable("lv", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: a, Expr: varRef(x)},
				{Var: b, Expr: varRef(a)},
				{Var: lv, Expr: call("sum", scalarType(), varRef(b))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", nil)
	require.NoError(t, err)
	adjFn, _ := out.FuncByName("main_adjoint")

	onesLikeCount, multiplyCount := 0, 0
	exprByName := map[string]ir.Expr{}
	for _, bnd := range adjFn.Body.Bindings {
		exprByName[bnd.Var.Name] = bnd.Expr
		c, ok := bnd.Expr.(*ir.CallExpr)
		if !ok {
			continue
		}
		switch c.Op {
		case "ones_like":
			onesLikeCount++
		case "multiply":
			multiplyCount++
		}
	}
	// One ones_like seeds lv's adjoint, one is sum's gradient for b; the
	// alias chain a, b, x must not reconstruct either.
	require.Equal(t, 2, onesLikeCount)
	require.Equal(t, 1, multiplyCount)

	require.IsType(t, &ir.CallExpr{}, exprByName["b_adjoint"])
	require.Equal(t, "multiply", exprByName["b_adjoint"].(*ir.CallExpr).Op)
	require.IsType(t, &ir.VarExpr{}, exprByName["a_adjoint"])
	require.Equal(t, "b_adjoint", exprByName["a_adjoint"].(*ir.VarExpr).Ref.Name)
	require.IsType(t, &ir.VarExpr{}, exprByName["x_adjoint"])
	require.Equal(t, "a_adjoint", exprByName["x_adjoint"].(*ir.VarExpr).Ref.Name)

	retTuple, ok := adjFn.Body.Return.Result.(*ir.TupleExpr)
	require.True(t, ok)
	adjTuple, ok := retTuple.Elems[1].(*ir.TupleExpr)
	require.True(t, ok)
	require.Len(t, adjTuple.Elems, 1)
	xAdjRef, ok := adjTuple.Elems[0].(*ir.VarExpr)
	require.True(t, ok)
	require.Equal(t, "x_adjoint", xAdjRef.Ref.Name)
}

// TestTupleConstructionAndProjection differentiates through a tuple
// built from two variables and later projected back apart.
func TestTupleConstructionAndProjection(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	y := ir.NewVariable("y", tensorType(), ir.Intermediate)
	tupTy := &ir.Tuple{Fields: []ir.StructuralType{tensorType(), tensorType()}}
	tt := ir.NewVariable("t", tupTy, ir.Intermediate)
	u := ir.NewVariable("u", tensorType(), ir.Intermediate)
	lv := ir.NewVariable("lv", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x, y},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: tt, Expr: &ir.TupleExpr{Elems: []ir.Expr{varRef(x), varRef(y)}}},
				{Var: u, Expr: &ir.ProjectExpr{Tuple: varRef(tt), Index: 0}},
				{Var: lv, Expr: call("sum", scalarType(), varRef(u))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", []string{"x", "y"})
	require.NoError(t, err)
	adjFn, _ := out.FuncByName("main_adjoint")

	exprByName := map[string]ir.Expr{}
	for _, b := range adjFn.Body.Bindings {
		exprByName[b.Var.Name] = b.Expr
	}

	// u is the only field of t that feeds the target, so x (projected in
	// as field 0) inherits u's adjoint by reference rather than
	// recomputing it.
	uAdjointCall, ok := exprByName["u_adjoint"].(*ir.CallExpr)
	require.True(t, ok)
	require.Equal(t, "multiply", uAdjointCall.Op)

	xRef, ok := exprByName["x_adjoint"].(*ir.VarExpr)
	require.True(t, ok)
	require.Equal(t, "u_adjoint", xRef.Ref.Name)

	yCall, ok := exprByName["y_adjoint"].(*ir.CallExpr)
	require.True(t, ok)
	require.Equal(t, "zeros", yCall.Op)
}

// TestSharedIntermediate differentiates through an intermediate value
// used twice by a downstream binding, checking the two adjoint
// contributions are summed rather than overwritten.
func TestSharedIntermediate(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	y := ir.NewVariable("y", tensorType(), ir.Intermediate)
	lv0 := ir.NewVariable("lv0", tensorType(), ir.Intermediate)
	lv1 := ir.NewVariable("lv1", tensorType(), ir.Intermediate)
	lv := ir.NewVariable("lv", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x, y},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: lv0, Expr: call("add", tensorType(), varRef(x), varRef(y))},
				{Var: lv1, Expr: call("add", tensorType(), varRef(lv0), varRef(lv0))},
				{Var: lv, Expr: call("sum", scalarType(), varRef(lv1))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", []string{"x", "y"})
	require.NoError(t, err)
	adjFn, _ := out.FuncByName("main_adjoint")

	var lv0AdjExpr ir.Expr
	var xAdjExpr, yAdjExpr *ir.CallExpr
	for _, b := range adjFn.Body.Bindings {
		switch b.Var.Name {
		case "lv0_adjoint":
			lv0AdjExpr = b.Expr
		case "x_adjoint":
			xAdjExpr, _ = b.Expr.(*ir.CallExpr)
		case "y_adjoint":
			yAdjExpr, _ = b.Expr.(*ir.CallExpr)
		}
	}
	addCall, ok := lv0AdjExpr.(*ir.CallExpr)
	require.True(t, ok)
	require.Equal(t, "add", addCall.Op)
	require.Len(t, addCall.Args, 2)

	require.Equal(t, "collapse_sum_like", xAdjExpr.Op)
	xArg, ok := xAdjExpr.Args[0].(*ir.VarExpr)
	require.True(t, ok)
	require.Equal(t, "lv0_adjoint", xArg.Ref.Name)

	require.Equal(t, "collapse_sum_like", yAdjExpr.Op)
	yArg, ok := yAdjExpr.Args[0].(*ir.VarExpr)
	require.True(t, ok)
	require.Equal(t, "lv0_adjoint", yArg.Ref.Name)
}

// TestEmptyRequiresGradientSet checks that every parameter gets an
// adjoint, in parameter order, when no gradient-input set is requested.
func TestEmptyRequiresGradientSet(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Intermediate)
	y := ir.NewVariable("y", tensorType(), ir.Intermediate)
	lv0 := ir.NewVariable("lv0", tensorType(), ir.Intermediate)
	lv1 := ir.NewVariable("lv1", scalarType(), ir.Intermediate)

	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x, y},
		ResultType: scalarType(),
		Body: &ir.BlockStmt{
			Bindings: []*ir.Binding{
				{Var: lv0, Expr: call("add", tensorType(), varRef(x), varRef(y))},
				{Var: lv1, Expr: call("sum", scalarType(), varRef(lv0))},
			},
			Return: &ir.ReturnStmt{Result: varRef(lv1)},
		},
	}
	mod := buildModule(fn)

	out, err := Pass(mod, "main", nil)
	require.NoError(t, err)
	adjFn, _ := out.FuncByName("main_adjoint")

	retTuple := adjFn.Body.Return.Result.(*ir.TupleExpr)
	adjTuple := retTuple.Elems[1].(*ir.TupleExpr)
	require.Len(t, adjTuple.Elems, 2)
	names := []string{
		adjTuple.Elems[0].(*ir.VarExpr).Ref.Name,
		adjTuple.Elems[1].(*ir.VarExpr).Ref.Name,
	}
	require.Equal(t, []string{"x_adjoint", "y_adjoint"}, names)
}

func TestPassRejectsNonScalarTarget(t *testing.T) {
	x := ir.NewVariable("x", tensorType(), ir.Output)
	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x},
		ResultType: tensorType(),
		Body: &ir.BlockStmt{
			Bindings: nil,
			Return:   &ir.ReturnStmt{Result: varRef(x)},
		},
	}
	mod := buildModule(fn)
	_, err := Pass(mod, "main", nil)
	require.ErrorIs(t, err, ErrTargetNotScalar)
}

func TestPassRejectsUnknownFunction(t *testing.T) {
	_, err := Pass(ir.NewModule(), "missing", nil)
	require.ErrorIs(t, err, ErrFuncNotFound)
}

func TestPassRejectsNonParamGradientInput(t *testing.T) {
	x := ir.NewVariable("x", scalarType(), ir.Intermediate)
	fn := &ir.FuncDecl{
		Params:     []*ir.Variable{x},
		ResultType: scalarType(),
		Body:       &ir.BlockStmt{Return: &ir.ReturnStmt{Result: varRef(x)}},
	}
	mod := buildModule(fn)
	_, err := Pass(mod, "main", []string{"z"})
	require.ErrorIs(t, err, ErrNotAParam)
}
