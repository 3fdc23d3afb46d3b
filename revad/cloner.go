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

	"github.com/vjpgraph/vjpgraph/base/uname"
	"github.com/vjpgraph/vjpgraph/ir"
	"github.com/vjpgraph/vjpgraph/ir/irbuilder"
)

// cloner re-emits a function's forward region under fresh variable
// identities, so the adjoint computation can be appended into the same
// region without mutating the original function.
type cloner struct {
	names  *uname.Unique
	varMap map[*ir.Variable]*ir.Variable
}

func newCloner(names *uname.Unique) *cloner {
	return &cloner{names: names, varMap: make(map[*ir.Variable]*ir.Variable)}
}

// cloneParams allocates a fresh parameter variable for each of fn's
// parameters, recording the mapping in c.varMap.
func (c *cloner) cloneParams(params []*ir.Variable) []*ir.Variable {
	cloned := make([]*ir.Variable, len(params))
	for i, p := range params {
		np := ir.NewVariable(c.names.Name(p.Name), p.Type, p.Kind)
		c.varMap[p] = np
		cloned[i] = np
	}
	return cloned
}

// remapExpr rebuilds e with every variable reference rewritten from its
// original identity to its cloned counterpart.
func (c *cloner) remapExpr(e ir.Expr) (ir.Expr, error) {
	switch t := e.(type) {
	case *ir.VarExpr:
		nv, ok := c.varMap[t.Ref]
		if !ok {
			return nil, errors.Wrapf(ErrMalformedIR, "reference to %s before it is bound", t.Ref.Name)
		}
		return &ir.VarExpr{Ref: nv}, nil
	case *ir.TupleExpr:
		elems := make([]ir.Expr, len(t.Elems))
		for i, el := range t.Elems {
			re, err := c.remapExpr(el)
			if err != nil {
				return nil, err
			}
			elems[i] = re
		}
		return &ir.TupleExpr{Elems: elems}, nil
	case *ir.ProjectExpr:
		re, err := c.remapExpr(t.Tuple)
		if err != nil {
			return nil, err
		}
		return &ir.ProjectExpr{Tuple: re, Index: t.Index}, nil
	case *ir.CallExpr:
		args := make([]ir.Expr, len(t.Args))
		for i, a := range t.Args {
			ra, err := c.remapExpr(a)
			if err != nil {
				return nil, err
			}
			args[i] = ra
		}
		return &ir.CallExpr{Op: t.Op, Args: args, ResTy: t.ResTy}, nil
	default:
		return nil, errors.Errorf("revad: cannot clone expression of type %T", e)
	}
}

// emitForward re-emits every binding of body into b under fresh variable
// identities, extending c.varMap with each binding's variable as it
// goes. The original bindings are left untouched.
func (c *cloner) emitForward(body *ir.BlockStmt, b *irbuilder.Builder) error {
	for _, bnd := range body.Bindings {
		newExpr, err := c.remapExpr(bnd.Expr)
		if err != nil {
			return errors.Wrapf(err, "cloning forward binding for %s", bnd.Var.Name)
		}
		newVar := ir.NewVariable(c.names.Name(bnd.Var.Name), bnd.Var.Type, bnd.Var.Kind)
		c.varMap[bnd.Var] = newVar
		if newVar.Kind == ir.Output {
			err = b.EmitOutput(newVar, newExpr)
		} else {
			err = b.Emit(newVar, newExpr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// remapCallArgs rebuilds call with every argument rewritten to reference
// its cloned forward value, for embedding a forward argument directly
// in a freshly constructed adjoint expression when consulting the
// gradient registry with cloned operands.
func remapCallArgs(call *ir.CallExpr, varMap map[*ir.Variable]*ir.Variable) (*ir.CallExpr, error) {
	args := make([]ir.Expr, len(call.Args))
	for i, a := range call.Args {
		av, ok := a.(*ir.VarExpr)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedIR, "argument %d of %s is not a variable reference", i, call.Op)
		}
		nv, ok := varMap[av.Ref]
		if !ok {
			return nil, errors.Wrapf(ErrMalformedIR, "no cloned forward value for %s", av.Ref.Name)
		}
		args[i] = &ir.VarExpr{Ref: nv}
	}
	return &ir.CallExpr{Op: call.Op, Args: args, ResTy: call.ResTy}, nil
}
