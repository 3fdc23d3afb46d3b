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
	"github.com/pkg/errors"

	"github.com/vjpgraph/vjpgraph/ir"
)

// seedTarget stores the initial adjoint of the function's scalar
// result: ones_like(the cloned target value). Seeding happens
// eagerly, before the reverse walk, so it also covers the degenerate
// case of a function that returns one of its own parameters with no
// intervening bindings at all.
func (t *tables) seedTarget(target *ir.Variable) error {
	ref, err := t.fwdRef(target)
	if err != nil {
		return err
	}
	t.adjExpr.Store(target, ir.OnesLike(ref))
	return nil
}

// propagate walks body's original bindings in reverse order, accumulating
// and binding adjoints. target is the original scalar result variable
// being differentiated; its adjoint must already be seeded in adjExpr.
func (t *tables) propagate(body *ir.BlockStmt, target *ir.Variable) error {
	for i := len(body.Bindings) - 1; i >= 0; i-- {
		bnd := body.Bindings[i]
		x := bnd.Var

		accum, hasAdjoint := t.adjExpr.Load(x)
		if !hasAdjoint {
			// x contributes nothing to the target; skip entirely.
			continue
		}

		t.ensureAdjVar(x)
		if err := t.bindAndEmit(x); err != nil {
			return errors.Wrapf(err, "binding adjoint of %s", x.Name)
		}

		if err := t.backpropagate(bnd.Expr, x, accum); err != nil {
			return errors.Wrapf(err, "propagating through binding of %s", x.Name)
		}
	}
	return nil
}

// backpropagate pushes the adjoint of x's binding (whose right-hand side
// is rhs, and whose freshly bound accumulation, pre-bind, was accum)
// into rhs's immediate inputs, dispatching on rhs's form.
func (t *tables) backpropagate(rhs ir.Expr, x *ir.Variable, accum ir.Expr) error {
	switch e := rhs.(type) {
	case *ir.TupleExpr:
		accumTuple, ok := accum.(*ir.TupleExpr)
		if !ok || len(accumTuple.Elems) != len(e.Elems) {
			return errors.Wrap(ErrMalformedIR, "tuple-construction binding with a non-tuple or mismatched accumulated adjoint")
		}
		for i, f := range e.Elems {
			fv, ok := f.(*ir.VarExpr)
			if !ok {
				return errors.Wrap(ErrMalformedIR, "tuple construction element is not a variable reference")
			}
			if err := t.updateExprMap(&ir.VarExpr{Ref: fv.Ref}, accumTuple.Elems[i]); err != nil {
				return err
			}
		}
		return nil

	case *ir.ProjectExpr:
		tv, ok := e.Tuple.(*ir.VarExpr)
		if !ok {
			return errors.Wrap(ErrMalformedIR, "projection of a non-variable tuple expression")
		}
		return t.updateExprMap(&ir.ProjectExpr{Tuple: &ir.VarExpr{Ref: tv.Ref}, Index: e.Index}, accum)

	case *ir.VarExpr:
		return t.updateExprMap(&ir.VarExpr{Ref: e.Ref}, accum)

	case *ir.CallExpr:
		remapped, err := remapCallArgs(e, t.varMap)
		if err != nil {
			return err
		}
		outAdjoint := t.adjVarRef(x)
		partials, err := t.reg.Grad(remapped, outAdjoint)
		if err != nil {
			return err
		}
		for i, a := range e.Args {
			av, ok := a.(*ir.VarExpr)
			if !ok {
				return errors.Wrap(ErrMalformedIR, "operator call argument is not a variable reference")
			}
			if err := t.updateExprMap(&ir.VarExpr{Ref: av.Ref}, partials[i]); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.Wrapf(ErrMalformedIR, "unsupported binding form %T", rhs)
	}
}
