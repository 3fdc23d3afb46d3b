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

import (
	"fmt"
	"strings"

	basefmt "github.com/vjpgraph/vjpgraph/base/fmt"
	"github.com/vjpgraph/vjpgraph/base/ordered"
	"github.com/vjpgraph/vjpgraph/base/stringseq"
)

// FuncDecl is a function with a body consisting of exactly one dataflow
// region.
type FuncDecl struct {
	// GlobalSymbol is this function's externally-visible name.
	GlobalSymbol string
	Params       []*Variable
	ResultType   StructuralType
	Body         *BlockStmt
}

func (*FuncDecl) node() {}

func (f *FuncDecl) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Name, p.Type.String())
	}
	var body strings.Builder
	for _, bnd := range f.Body.Bindings {
		body.WriteString(bnd.String())
		body.WriteString("\n")
	}
	body.WriteString(f.Body.Return.String())
	var out strings.Builder
	fmt.Fprintf(&out, "func %s(%s) %s {\n", f.GlobalSymbol, strings.Join(params, ", "), f.ResultType.String())
	out.WriteString(basefmt.Indent(body.String()))
	out.WriteString("\n}")
	return out.String()
}

// Dump renders every function in the module, in insertion order, joined
// by blank lines; a debugging aid, not part of the IR's well-formedness
// surface.
func (m *Module) Dump() string {
	return stringseq.Join(func(yield func(string) bool) {
		for fn := range m.funcs.Values() {
			if !yield(fn.String()) {
				return
			}
		}
	}, "\n\n")
}

// Module is an immutable-from-the-outside collection of named
// functions. Mutation is always via Clone, so an existing *Module value
// is never observed to change.
type Module struct {
	funcs *ordered.Map[string, *FuncDecl]
}

// NewModule returns an empty module.
func NewModule() *Module {
	return &Module{funcs: ordered.NewMap[string, *FuncDecl]()}
}

// FuncByName looks up a function by its global symbol.
func (m *Module) FuncByName(name string) (*FuncDecl, bool) {
	return m.funcs.Load(name)
}

// Funcs iterates over all functions in the module, in the order they
// were added.
func (m *Module) Funcs() func(func(string, *FuncDecl) bool) {
	return m.funcs.Iter()
}

// WithFunc returns a new Module equal to m plus fn bound to its global
// symbol, without modifying m.
func (m *Module) WithFunc(fn *FuncDecl) *Module {
	clone := &Module{funcs: m.funcs.Clone()}
	clone.funcs.Store(fn.GlobalSymbol, fn)
	return clone
}
