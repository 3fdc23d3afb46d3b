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

import "github.com/pkg/errors"

// Sentinel errors for Pass's precondition failures. Wrap with
// errors.Wrap/Wrapf at the call site rather than constructing new error
// text, so callers can errors.Is against these.
var (
	// ErrFuncNotFound is returned when the requested function does not
	// exist in the module.
	ErrFuncNotFound = errors.New("revad: function not found")
	// ErrNoRegion is returned when a function has no body to differentiate.
	ErrNoRegion = errors.New("revad: function has no dataflow region")
	// ErrTargetNotVariable is returned when the terminator does not return
	// a bare variable reference.
	ErrTargetNotVariable = errors.New("revad: terminator must return a single variable")
	// ErrTargetNotScalar is returned when the returned variable is not a
	// scalar tensor.
	ErrTargetNotScalar = errors.New("revad: terminator variable must be a scalar tensor")
	// ErrNotAParam is returned when a requested differentiation input is
	// not one of the function's parameters.
	ErrNotAParam = errors.New("revad: requested input is not a parameter of the function")
	// ErrMalformedIR is returned when the pass encounters IR that violates
	// the A-normal-form discipline it assumes (e.g. a call argument that
	// is not a variable reference).
	ErrMalformedIR = errors.New("revad: malformed IR")
)
