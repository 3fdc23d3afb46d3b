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

// Package primreg is the primitive gradient registry: a per-operator-kind
// table mapping a forward call and its output adjoint to one
// partial-adjoint expression per forward argument, in argument order.
//
// Modeled on the teacher pack's github.com/gomlx/gomlx VJPRegistration
// table (graph/rev_autodiff.go), adapted to this module's IR.
package primreg

import (
	"github.com/pkg/errors"

	"github.com/vjpgraph/vjpgraph/ir"
)

// GradFunc computes one partial-adjoint expression per argument of
// call, given the accumulated adjoint of call's result.
type GradFunc func(call *ir.CallExpr, outAdjoint ir.Expr) ([]ir.Expr, error)

// Registry is an immutable, read-only lookup table from operator kind to
// its GradFunc. Safe to share across concurrent Pass invocations.
type Registry struct {
	fns map[string]GradFunc
}

// Grad looks up and invokes the gradient function registered for
// call.Op. It also verifies the returned partials number exactly
// len(call.Args).
func (r *Registry) Grad(call *ir.CallExpr, outAdjoint ir.Expr) ([]ir.Expr, error) {
	fn, ok := r.fns[call.Op]
	if !ok {
		return nil, errors.Errorf("primreg: no gradient registered for operator %q", call.Op)
	}
	partials, err := fn(call, outAdjoint)
	if err != nil {
		return nil, errors.Wrapf(err, "computing gradient of %s", call.Op)
	}
	if len(partials) != len(call.Args) {
		return nil, errors.Errorf("primreg: gradient of %s returned %d partials for %d arguments", call.Op, len(partials), len(call.Args))
	}
	return partials, nil
}

// NewStandard returns the registry covering the small forward-op
// vocabulary this module exercises (add, sub, neg, mul, sum, reduce_sum,
// reshape); registering the full elementwise-broadcast,
// convolution-backward, pooling-backward, and loss-backward operator
// families is out of scope for this module.
func NewStandard() *Registry {
	return &Registry{fns: map[string]GradFunc{
		"add":        gradAdd,
		"sub":        gradSub,
		"neg":        gradNeg,
		"mul":        gradMul,
		"sum":        gradSum,
		"reduce_sum": gradSum,
		"reshape":    gradReshape,
	}}
}
