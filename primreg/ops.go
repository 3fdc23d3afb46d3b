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

package primreg

import (
	"github.com/pkg/errors"

	"github.com/vjpgraph/vjpgraph/ir"
)

// gradAdd: F(a, b) = a + b (with broadcasting) -> dF/da = dF/db = v,
// each collapsed back down to its own argument's shape.
func gradAdd(call *ir.CallExpr, v ir.Expr) ([]ir.Expr, error) {
	partials := make([]ir.Expr, len(call.Args))
	for i, arg := range call.Args {
		partials[i] = ir.CollapseSumLike(v, arg)
	}
	return partials, nil
}

// gradSub: F(a, b) = a - b -> dF/da = v, dF/db = -v, each collapsed back
// to its argument's shape.
func gradSub(call *ir.CallExpr, v ir.Expr) ([]ir.Expr, error) {
	if len(call.Args) != 2 {
		return nil, errors.Errorf("sub expects 2 arguments, got %d", len(call.Args))
	}
	return []ir.Expr{
		ir.CollapseSumLike(v, call.Args[0]),
		ir.CollapseSumLike(ir.Neg(v), call.Args[1]),
	}, nil
}

// gradNeg: F(a) = -a -> dF/da = -v.
func gradNeg(call *ir.CallExpr, v ir.Expr) ([]ir.Expr, error) {
	return []ir.Expr{ir.Neg(v)}, nil
}

// gradMul: F(a, b) = a * b (elementwise, with broadcasting) ->
// dF/da = v*b, dF/db = v*a, each collapsed back to its argument's shape.
func gradMul(call *ir.CallExpr, v ir.Expr) ([]ir.Expr, error) {
	if len(call.Args) != 2 {
		return nil, errors.Errorf("mul expects 2 arguments, got %d", len(call.Args))
	}
	a, b := call.Args[0], call.Args[1]
	return []ir.Expr{
		ir.CollapseSumLike(ir.Multiply(v, b), a),
		ir.CollapseSumLike(ir.Multiply(v, a), b),
	}, nil
}

// gradSum: F(x) = sum(x) reduces x to a scalar -> dF/dx = v broadcast to
// x's shape, expressed as multiply(v, ones_like(x)).
func gradSum(call *ir.CallExpr, v ir.Expr) ([]ir.Expr, error) {
	if len(call.Args) != 1 {
		return nil, errors.Errorf("sum expects 1 argument, got %d", len(call.Args))
	}
	x := call.Args[0]
	return []ir.Expr{ir.Multiply(v, ir.OnesLike(x))}, nil
}

// gradReshape: F(x) = reshape(x) -> dF/dx = reshape(v) back to x's
// original shape.
func gradReshape(call *ir.CallExpr, v ir.Expr) ([]ir.Expr, error) {
	if len(call.Args) != 1 {
		return nil, errors.Errorf("reshape expects 1 argument, got %d", len(call.Args))
	}
	return []ir.Expr{ir.Reshape(v, call.Args[0].Type())}, nil
}
