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
	"testing"

	"github.com/stretchr/testify/require"
)

func fixtureFunc(name string) *FuncDecl {
	x := NewVariable("x", tensor(3), Intermediate)
	lv := NewVariable("lv", tensor(3), Intermediate)
	return &FuncDecl{
		GlobalSymbol: name,
		Params:       []*Variable{x},
		ResultType:   tensor(3),
		Body: &BlockStmt{
			Bindings: []*Binding{
				{Var: lv, Expr: &CallExpr{Op: "neg", Args: []Expr{&VarExpr{Ref: x}}, ResTy: tensor(3)}},
			},
			Return: &ReturnStmt{Result: &VarExpr{Ref: lv}},
		},
	}
}

func TestFuncDeclString(t *testing.T) {
	fn := fixtureFunc("f")
	want := "func f(x (f32)[3]) (f32)[3] {\n\tlv = neg(x)\n\treturn lv\n}"
	require.Equal(t, want, fn.String())
}

func TestModuleFuncByNameAndWithFunc(t *testing.T) {
	mod := NewModule()
	_, ok := mod.FuncByName("f")
	require.False(t, ok)

	f := fixtureFunc("f")
	mod2 := mod.WithFunc(f)

	// mod is unmodified.
	_, ok = mod.FuncByName("f")
	require.False(t, ok)

	got, ok := mod2.FuncByName("f")
	require.True(t, ok)
	require.Same(t, f, got)
}

func TestModuleFuncsPreservesInsertionOrder(t *testing.T) {
	mod := NewModule().WithFunc(fixtureFunc("a")).WithFunc(fixtureFunc("b"))
	var names []string
	for name := range mod.Funcs() {
		names = append(names, name)
	}
	require.Equal(t, []string{"a", "b"}, names)
}

func TestModuleDumpJoinsFunctions(t *testing.T) {
	mod := NewModule().WithFunc(fixtureFunc("a")).WithFunc(fixtureFunc("b"))
	dump := mod.Dump()
	require.Equal(t, fixtureFunc("a").String()+"\n\n"+fixtureFunc("b").String(), dump)
}
