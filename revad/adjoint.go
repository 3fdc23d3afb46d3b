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

	"github.com/vjpgraph/vjpgraph/base/ordered"
	"github.com/vjpgraph/vjpgraph/base/uname"
	"github.com/vjpgraph/vjpgraph/ir"
	"github.com/vjpgraph/vjpgraph/ir/irbuilder"
	"github.com/vjpgraph/vjpgraph/primreg"
)

// tables holds the accumulation structures the reverse pass needs, plus
// the collaborators (block builder, gradient registry, name generator)
// and the forward variable map that ties an original binding's variable
// to its freshly cloned counterpart in the output function.
type tables struct {
	// varMap maps every original parameter and binding variable to the
	// fresh variable the forward cloner emitted for it.
	varMap map[*ir.Variable]*ir.Variable

	// adjVar maps an original variable to its AdjointVariable, allocated
	// lazily the first time that original variable's adjoint is needed.
	adjVar *ordered.Map[*ir.Variable, *ir.Variable]
	// adjExpr maps an original variable to its accumulated-but-not-yet-
	// bound adjoint expression.
	adjExpr *ordered.Map[*ir.Variable, ir.Expr]
	// intern maps a previously bound expression (by identity) to the
	// variable it was bound to, so a repeated expression is referenced
	// rather than re-embedded.
	intern map[ir.Expr]*ir.Variable
	// zero tracks expressions known structurally to be the zero adjoint,
	// populated only by buildEmptyNestedTupleExpr.
	zero map[ir.Expr]bool

	names *uname.Unique
	b     *irbuilder.Builder
	reg   *primreg.Registry
}

func newTables(varMap map[*ir.Variable]*ir.Variable, names *uname.Unique, b *irbuilder.Builder, reg *primreg.Registry) *tables {
	return &tables{
		varMap:  varMap,
		adjVar:  ordered.NewMap[*ir.Variable, *ir.Variable](),
		adjExpr: ordered.NewMap[*ir.Variable, ir.Expr](),
		intern:  make(map[ir.Expr]*ir.Variable),
		zero:    make(map[ir.Expr]bool),
		names:   names,
		b:       b,
		reg:     reg,
	}
}

// fwdRef returns a reference to the cloned forward value of an original
// variable, for embedding in a freshly constructed adjoint expression.
func (t *tables) fwdRef(orig *ir.Variable) (*ir.VarExpr, error) {
	nv, ok := t.varMap[orig]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedIR, "no cloned forward value for %s", orig.Name)
	}
	return &ir.VarExpr{Ref: nv}, nil
}

// ensureAdjVar returns orig's AdjointVariable, allocating it on first
// use. The allocated variable mirrors orig's type and kind and is named
// "<orig>_adjoint".
func (t *tables) ensureAdjVar(orig *ir.Variable) *ir.Variable {
	if v, ok := t.adjVar.Load(orig); ok {
		return v
	}
	v := ir.NewVariable(t.names.Name(orig.Name+"_adjoint"), orig.Type, orig.Kind)
	t.adjVar.Store(orig, v)
	return v
}

// adjVarRef returns a reference to orig's current AdjointVariable
// (reflecting any alias substitution bindAndEmit may have performed).
// ensureAdjVar must already have been called for orig.
func (t *tables) adjVarRef(orig *ir.Variable) *ir.VarExpr {
	v, _ := t.adjVar.Load(orig)
	return &ir.VarExpr{Ref: v}
}

// internRewrite substitutes e for a reference to its already-bound
// variable, if one exists; otherwise it returns e unchanged.
func (t *tables) internRewrite(e ir.Expr) ir.Expr {
	if v, ok := t.intern[e]; ok {
		return &ir.VarExpr{Ref: v}
	}
	return e
}

// doAdd computes the zero-eliminating, intern-substituting sum of two
// adjoint expressions. A zero operand is dropped entirely;
// two tuple literals are added element-wise; otherwise an add(...) call
// is built with its second operand intern-rewritten. The surviving
// operand in a zero-elimination is intern-rewritten too, so that an
// expression already bound elsewhere is referenced rather than
// re-embedded when it flows on through untouched.
func (t *tables) doAdd(s1, s2 ir.Expr) ir.Expr {
	if t.zero[s1] {
		return t.internRewrite(s2)
	}
	if t.zero[s2] {
		return t.internRewrite(s1)
	}
	t1, ok1 := s1.(*ir.TupleExpr)
	t2, ok2 := s2.(*ir.TupleExpr)
	if ok1 && ok2 {
		elems := make([]ir.Expr, len(t1.Elems))
		for i := range elems {
			elems[i] = t.doAdd(t1.Elems[i], t2.Elems[i])
		}
		return &ir.TupleExpr{Elems: elems}
	}
	return ir.Add(s1, t.internRewrite(s2))
}

// buildEmptyNestedTupleExpr constructs a zero-tuple-literal mirroring
// typ's nesting, registering every leaf zeros(...) call in the zero set.
// Used both to lazily initialize a projected-into variable's adjoint and
// to default the adjoint of an input that turns out to be unused.
func (t *tables) buildEmptyNestedTupleExpr(typ ir.StructuralType) (ir.Expr, error) {
	switch tt := typ.(type) {
	case *ir.Tuple:
		elems := make([]ir.Expr, len(tt.Fields))
		for i, f := range tt.Fields {
			el, err := t.buildEmptyNestedTupleExpr(f)
			if err != nil {
				return nil, err
			}
			elems[i] = el
		}
		return &ir.TupleExpr{Elems: elems}, nil
	case *ir.Tensor:
		z := ir.Zeros(tt)
		t.zero[z] = true
		return z, nil
	default:
		return nil, errors.Errorf("revad: cannot build a zero adjoint for non-tensor, non-tuple type %s", typ.String())
	}
}

// updateExprMap accumulates increment into the adjoint of whichever
// original variable base identifies, dispatching on base's form: a bare
// variable, a tuple literal (element-wise), or a projection out of a
// variable (lazily zero-initializing the projected variable's adjoint
// tuple on first use).
func (t *tables) updateExprMap(base, increment ir.Expr) error {
	switch b := base.(type) {
	case *ir.VarExpr:
		v := b.Ref
		existing, ok := t.adjExpr.Load(v)
		if !ok {
			t.adjExpr.Store(v, t.internRewrite(increment))
			return nil
		}
		t.adjExpr.Store(v, t.doAdd(existing, increment))
		return nil

	case *ir.TupleExpr:
		incTuple, ok := increment.(*ir.TupleExpr)
		if !ok || len(incTuple.Elems) != len(b.Elems) {
			return errors.Wrap(ErrMalformedIR, "tuple-construction accumulation with mismatched arity")
		}
		for i, el := range b.Elems {
			if err := t.updateExprMap(el, incTuple.Elems[i]); err != nil {
				return err
			}
		}
		return nil

	case *ir.ProjectExpr:
		tv, ok := b.Tuple.(*ir.VarExpr)
		if !ok {
			return errors.Wrap(ErrMalformedIR, "projection base is not a variable reference")
		}
		v := tv.Ref
		cur, ok := t.adjExpr.Load(v)
		if !ok {
			empty, err := t.buildEmptyNestedTupleExpr(v.Type)
			if err != nil {
				return err
			}
			cur = empty
		}
		curTuple, ok := cur.(*ir.TupleExpr)
		if !ok || b.Index < 0 || b.Index >= len(curTuple.Elems) {
			return errors.Wrap(ErrMalformedIR, "projection index out of range of accumulated adjoint tuple")
		}
		newElems := append([]ir.Expr(nil), curTuple.Elems...)
		newElems[b.Index] = t.doAdd(newElems[b.Index], increment)
		t.adjExpr.Store(v, &ir.TupleExpr{Elems: newElems})
		return nil

	default:
		return errors.Wrapf(ErrMalformedIR, "unsupported accumulation base form %T", base)
	}
}

// bindAndEmit binds orig's accumulated adjoint expression to its
// AdjointVariable. If that expression was already bound under a
// different variable (found in the intern table), orig is aliased to
// that variable instead and no new binding is emitted.
func (t *tables) bindAndEmit(orig *ir.Variable) error {
	v, ok := t.adjVar.Load(orig)
	if !ok {
		return errors.Errorf("revad: internal: bindAndEmit called for %s before ensureAdjVar", orig.Name)
	}
	e, ok := t.adjExpr.Load(orig)
	if !ok {
		return errors.Errorf("revad: internal: bindAndEmit called for %s with no accumulated adjoint", orig.Name)
	}
	if existing, ok := t.intern[e]; ok {
		t.adjVar.Store(orig, existing)
		return nil
	}
	if !e.Type().Equal(v.Type) {
		return errors.Errorf("revad: adjoint type mismatch for %s: expression has type %s, variable has type %s", orig.Name, e.Type(), v.Type)
	}
	t.intern[e] = v
	if v.Kind == ir.Output {
		return t.b.EmitOutput(v, e)
	}
	return t.b.Emit(v, e)
}
