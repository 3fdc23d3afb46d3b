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

// finalizeInput binds w's input adjoint, defaulting to a well-typed zero
// if nothing ever accumulated into it (an input that does not affect
// the target still needs an adjoint of the right shape), and returns
// the variable its adjoint is now bound to.
func (t *tables) finalizeInput(w *ir.Variable) (*ir.Variable, error) {
	t.ensureAdjVar(w)
	if _, ok := t.adjExpr.Load(w); !ok {
		zero, err := t.buildEmptyNestedTupleExpr(w.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "defaulting adjoint of input %s", w.Name)
		}
		t.adjExpr.Store(w, zero)
	}
	if err := t.bindAndEmit(w); err != nil {
		return nil, errors.Wrapf(err, "finalizing adjoint of input %s", w.Name)
	}
	v, _ := t.adjVar.Load(w)
	return v, nil
}

// buildReturn shapes the final terminator: a pair of the original
// (cloned) return value and the tuple of requested input adjoints, in
// the order requested.
func buildReturn(originalReturn ir.Expr, inputAdjoints []*ir.Variable) *ir.ReturnStmt {
	elems := make([]ir.Expr, len(inputAdjoints))
	for i, v := range inputAdjoints {
		elems[i] = &ir.VarExpr{Ref: v}
	}
	return &ir.ReturnStmt{Result: &ir.TupleExpr{
		Elems: []ir.Expr{originalReturn, &ir.TupleExpr{Elems: elems}},
	}}
}
