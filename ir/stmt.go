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

import "fmt"

// Binding associates a fresh variable with the expression that defines
// it. Bindings are totally ordered by their position in a BlockStmt.
type Binding struct {
	Var  *Variable
	Expr Expr
}

func (*Binding) node() {}

func (b *Binding) String() string {
	return fmt.Sprintf("%s = %s", b.Var.Name, b.Expr.String())
}

// ReturnStmt is the single terminator of a dataflow region.
type ReturnStmt struct {
	Result Expr
}

func (*ReturnStmt) node() {}

func (r *ReturnStmt) String() string { return fmt.Sprintf("return %s", r.Result.String()) }

// BlockStmt is a dataflow region: a linearly ordered sequence of
// bindings terminated by a single return, free of control flow.
type BlockStmt struct {
	Bindings []*Binding
	Return   *ReturnStmt
}

func (*BlockStmt) node() {}

// BindingOf looks up the binding for a variable, if one was already emitted.
func (b *BlockStmt) BindingOf(v *Variable) (*Binding, bool) {
	for _, bnd := range b.Bindings {
		if bnd.Var == v {
			return bnd, true
		}
	}
	return nil, false
}
