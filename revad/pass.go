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

// Package revad is the reverse-mode automatic differentiation pass: it
// turns a scalar-valued function over a typed tensor dataflow region
// into a new function returning that scalar alongside the gradient with
// respect to a requested subset of its inputs, by a single linear-time
// walk over the original bindings in reverse.
package revad

import (
	"github.com/pkg/errors"

	"github.com/vjpgraph/vjpgraph/base/uname"
	"github.com/vjpgraph/vjpgraph/ir"
	"github.com/vjpgraph/vjpgraph/ir/irbuilder"
	"github.com/vjpgraph/vjpgraph/primreg"
)

// Pass differentiates the function named fnName in mod with respect to
// the parameters named in wrt (in the order given), or with respect to
// every parameter if wrt is empty, and returns a new module equal to
// mod plus the resulting function bound to fnName+"_adjoint". mod is
// never modified.
func Pass(mod *ir.Module, fnName string, wrt []string) (*ir.Module, error) {
	fn, ok := mod.FuncByName(fnName)
	if !ok {
		return nil, errors.Wrapf(ErrFuncNotFound, "%q", fnName)
	}
	if fn.Body == nil {
		return nil, errors.Wrapf(ErrNoRegion, "%q", fnName)
	}
	if fn.Body.Return == nil {
		return nil, errors.Wrapf(ErrNoRegion, "%q has no terminator", fnName)
	}
	targetExpr, ok := fn.Body.Return.Result.(*ir.VarExpr)
	if !ok {
		return nil, errors.Wrapf(ErrTargetNotVariable, "%q", fnName)
	}
	target := targetExpr.Ref
	targetTensor, ok := target.Type.(*ir.Tensor)
	if !ok || !targetTensor.IsScalar() {
		return nil, errors.Wrapf(ErrTargetNotScalar, "%q returns %s", fnName, target.Type.String())
	}

	wrtVars, err := resolveWrt(fn, wrt)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving gradient inputs of %q", fnName)
	}

	names := uname.New()
	b := irbuilder.New()
	if err := b.BeginRegion(); err != nil {
		return nil, err
	}

	cl := newCloner(names)
	newParams := cl.cloneParams(fn.Params)
	if err := cl.emitForward(fn.Body, b); err != nil {
		return nil, err
	}

	tabs := newTables(cl.varMap, names, b, primreg.NewStandard())
	if err := tabs.seedTarget(target); err != nil {
		return nil, errors.Wrapf(err, "seeding target of %q", fnName)
	}
	if err := tabs.propagate(fn.Body, target); err != nil {
		return nil, errors.Wrapf(err, "differentiating %q", fnName)
	}

	inputAdjoints := make([]*ir.Variable, len(wrtVars))
	for i, w := range wrtVars {
		v, err := tabs.finalizeInput(w)
		if err != nil {
			return nil, err
		}
		inputAdjoints[i] = v
	}

	originalReturn, err := tabs.fwdRef(target)
	if err != nil {
		return nil, err
	}
	region, err := b.EndRegion(buildReturn(originalReturn, inputAdjoints))
	if err != nil {
		return nil, err
	}
	region, err = irbuilder.Normalize(region, names)
	if err != nil {
		return nil, errors.Wrapf(err, "normalizing %q", fnName)
	}

	wrtTypes := make([]ir.StructuralType, len(wrtVars))
	for i, w := range wrtVars {
		wrtTypes[i] = w.Type
	}
	newFn := &ir.FuncDecl{
		GlobalSymbol: fnName + "_adjoint",
		Params:       newParams,
		ResultType:   &ir.Tuple{Fields: []ir.StructuralType{target.Type, &ir.Tuple{Fields: wrtTypes}}},
		Body:         region,
	}
	if dup, ok := ir.DistinctNames(newFn); !ok {
		return nil, errors.Wrapf(ErrMalformedIR, "%q: generated duplicate variable name %q", newFn.GlobalSymbol, dup)
	}
	return mod.WithFunc(newFn), nil
}

// resolveWrt returns, in the order requested, the parameters of fn named
// by wrt; an empty wrt means every parameter, in declaration order.
func resolveWrt(fn *ir.FuncDecl, wrt []string) ([]*ir.Variable, error) {
	if len(wrt) == 0 {
		return fn.Params, nil
	}
	byName := make(map[string]*ir.Variable, len(fn.Params))
	for _, p := range fn.Params {
		byName[p.Name] = p
	}
	vars := make([]*ir.Variable, len(wrt))
	for i, name := range wrt {
		p, ok := byName[name]
		if !ok {
			return nil, errors.Wrapf(ErrNotAParam, "%q", name)
		}
		vars[i] = p
	}
	return vars, nil
}
