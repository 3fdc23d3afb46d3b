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

package ir

import "github.com/vjpgraph/vjpgraph/base/iter"

// DistinctNames reports whether every variable name appearing among fn's
// parameters and bindings is unique. Variable identity is always the
// pointer, never the name, so a collision is not a correctness bug by
// itself, but it makes String's by-name rendering ambiguous. It returns
// the first repeated name found, or ok=true if there is none.
func DistinctNames(fn *FuncDecl) (dup string, ok bool) {
	paramNames := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		paramNames[i] = p.Name
	}
	bindingNames := make([]string, len(fn.Body.Bindings))
	for i, b := range fn.Body.Bindings {
		bindingNames[i] = b.Var.Name
	}
	seen := make(map[string]bool, len(paramNames)+len(bindingNames))
	for name := range iter.All(paramNames, bindingNames) {
		if seen[name] {
			return name, false
		}
		seen[name] = true
	}
	return "", true
}
