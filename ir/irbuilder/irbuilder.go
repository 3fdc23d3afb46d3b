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

// Package irbuilder accumulates bindings into the dataflow region under
// construction and normalizes it once complete.
package irbuilder

import (
	"github.com/pkg/errors"

	"github.com/vjpgraph/vjpgraph/base/uname"
	"github.com/vjpgraph/vjpgraph/ir"
)

// Builder accumulates bindings into a single dataflow region. It is not
// safe for concurrent use; the pass that owns it is single-threaded.
type Builder struct {
	region *ir.BlockStmt
	open   bool
}

// New returns a Builder with no region open yet.
func New() *Builder {
	return &Builder{}
}

// BeginRegion starts accumulating a new dataflow region. It is an error
// to call BeginRegion while a region is already open.
func (b *Builder) BeginRegion() error {
	if b.open {
		return errors.New("irbuilder: BeginRegion called while a region is already open")
	}
	b.region = &ir.BlockStmt{}
	b.open = true
	return nil
}

// Emit appends a dataflow binding (v scoped to the region) to the
// region under construction.
func (b *Builder) Emit(v *ir.Variable, e ir.Expr) error {
	if !b.open {
		return errors.New("irbuilder: Emit called with no region open")
	}
	if v.Kind != ir.Intermediate {
		return errors.Errorf("irbuilder: Emit requires an intermediate variable, got %s (%s)", v.Name, v.Kind)
	}
	b.region.Bindings = append(b.region.Bindings, &ir.Binding{Var: v, Expr: e})
	return nil
}

// EmitOutput appends an output binding (v visible outside the region)
// to the region under construction.
func (b *Builder) EmitOutput(v *ir.Variable, e ir.Expr) error {
	if !b.open {
		return errors.New("irbuilder: EmitOutput called with no region open")
	}
	if v.Kind != ir.Output {
		return errors.Errorf("irbuilder: EmitOutput requires an output variable, got %s (%s)", v.Name, v.Kind)
	}
	b.region.Bindings = append(b.region.Bindings, &ir.Binding{Var: v, Expr: e})
	return nil
}

// EndRegion closes the region under construction with the given
// terminator and returns it. The Builder can BeginRegion again
// afterwards.
func (b *Builder) EndRegion(ret *ir.ReturnStmt) (*ir.BlockStmt, error) {
	if !b.open {
		return nil, errors.New("irbuilder: EndRegion called with no region open")
	}
	b.region.Return = ret
	region := b.region
	b.region = nil
	b.open = false
	return region, nil
}

// Normalize canonicalizes a constructed region so every call or
// projection argument is a leaf (a variable reference), as the IR's
// administrative-normal-form discipline requires. Any nested non-leaf
// sub-expression (typically produced by the gradient registry, e.g.
// `multiply(v, ones_like(x))`) is rebound through a fresh intermediate
// variable, named from names, inserted immediately before the binding
// that needs it. The terminator is made a leaf the same way: a call or
// projection returned directly is rebound through a fresh intermediate
// variable. Tuple literals are exempt from the leaf requirement and may
// nest directly, since tuple construction is itself a leaf binding form.
func Normalize(region *ir.BlockStmt, names *uname.Unique) (*ir.BlockStmt, error) {
	if region.Return == nil {
		return nil, errors.New("irbuilder: cannot normalize a region with no terminator")
	}
	n := &normalizer{names: names}
	bindings := make([]*ir.Binding, 0, len(region.Bindings))
	for _, b := range region.Bindings {
		expr, err := n.normalizeTop(b.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "normalizing binding for %s", b.Var.Name)
		}
		bindings = append(bindings, n.flush()...)
		bindings = append(bindings, &ir.Binding{Var: b.Var, Expr: expr})
	}
	retExpr, err := n.hoist(region.Return.Result)
	if err != nil {
		return nil, errors.Wrap(err, "normalizing terminator")
	}
	bindings = append(bindings, n.flush()...)
	return &ir.BlockStmt{Bindings: bindings, Return: &ir.ReturnStmt{Result: retExpr}}, nil
}

// normalizer accumulates the intermediate bindings produced by hoisting
// nested non-leaf sub-expressions, to be flushed just before the
// binding whose right-hand side they came from.
type normalizer struct {
	names   *uname.Unique
	pending []*ir.Binding
}

func (n *normalizer) flush() []*ir.Binding {
	pending := n.pending
	n.pending = nil
	return pending
}

// normalizeTop rewrites e's immediate children into leaves, without
// requiring e itself to become a leaf (it may remain a binding's own
// top-level expression).
func (n *normalizer) normalizeTop(e ir.Expr) (ir.Expr, error) {
	switch t := e.(type) {
	case *ir.VarExpr:
		return t, nil
	case *ir.TupleExpr:
		elems := make([]ir.Expr, len(t.Elems))
		for i, el := range t.Elems {
			leaf, err := n.hoist(el)
			if err != nil {
				return nil, err
			}
			elems[i] = leaf
		}
		return &ir.TupleExpr{Elems: elems}, nil
	case *ir.ProjectExpr:
		leaf, err := n.hoist(t.Tuple)
		if err != nil {
			return nil, err
		}
		return &ir.ProjectExpr{Tuple: leaf, Index: t.Index}, nil
	case *ir.CallExpr:
		args := make([]ir.Expr, len(t.Args))
		for i, a := range t.Args {
			leaf, err := n.hoist(a)
			if err != nil {
				return nil, err
			}
			args[i] = leaf
		}
		return &ir.CallExpr{Op: t.Op, Args: args, ResTy: t.ResTy}, nil
	default:
		return nil, errors.Errorf("unsupported expression form %T", e)
	}
}

// hoist normalizes sub and, unless it is already a leaf (a variable
// reference, or a tuple literal - which nests directly), binds it to a
// fresh intermediate variable and returns a reference to that variable.
func (n *normalizer) hoist(sub ir.Expr) (ir.Expr, error) {
	switch sub.(type) {
	case *ir.VarExpr:
		return sub, nil
	case *ir.TupleExpr:
		return n.normalizeTop(sub)
	default:
		normalized, err := n.normalizeTop(sub)
		if err != nil {
			return nil, err
		}
		tmp := ir.NewVariable(n.names.Name("tmp"), normalized.Type(), ir.Intermediate)
		n.pending = append(n.pending, &ir.Binding{Var: tmp, Expr: normalized})
		return &ir.VarExpr{Ref: tmp}, nil
	}
}
