// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package vm

import (
	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

// argBinding is the caller-supplied argument state one activation's
// OpMacroArgBind/OpArgSupplied instructions read against, matching spec.md
// §4.5's "matched to position first, then by name" call rule.
type argBinding struct {
	positional []Value
	named      map[source.Name]Value
	spreadArg  int // -1 if the callee has no spread parameter
}

// bind resolves formal parameter i (named name) against the caller's
// supplied arguments. When i is the callee's spread position every
// remaining positional argument (those past every earlier non-spread
// parameter) collects into a fresh array, always "supplied" even if empty.
func (a argBinding) bind(i int, name source.Name) (Value, bool) {
	if a.spreadArg >= 0 && i == a.spreadArg {
		rest := a.positional
		if i < len(rest) {
			rest = rest[i:]
		} else {
			rest = nil
		}

		elems := make([]*Cell, len(rest))
		for j, v := range rest {
			elems[j] = NewCell(v)
		}

		return &Array{Elems: elems}, true
	}

	if i < len(a.positional) && (a.spreadArg < 0 || i < a.spreadArg) {
		return a.positional[i], true
	}

	if a.named != nil {
		if v, ok := a.named[name]; ok {
			return v, true
		}
	}

	return nil, false
}

func (a argBinding) supplied(i int, name source.Name) bool {
	_, ok := a.bind(i, name)

	return ok
}

// call resolves OpCall: calleeVal must be a *Macro (a bound method or a bare
// closure); builtin functions are matched by identity against m.Builtins
// through a BuiltinsMarker member-access producing a *Macro with a negative
// FuncIndex that callNative in builtins.go recognizes (see member.go's
// builtin dispatch).
func (m *Machine) call(calleeVal Value, instr bytecode.Instr, caller *Context, callerFn *bytecode.Func) (Value, error) {
	mac, ok := calleeVal.(*Macro)
	if !ok {
		return nil, newFault("type-error", instr.Span, "%s is not callable", TypeName(calleeVal))
	}

	positional := make([]Value, 0, len(instr.Args))
	named := make(map[source.Name]Value)

	if mac.Self != nil {
		positional = append(positional, mac.Self)
	}

	for i, a := range instr.Args {
		v := caller.Registers[a].Value
		if instr.Names[i] == 0 {
			positional = append(positional, v)
		} else {
			named[instr.Names[i]] = v
		}
	}

	if mac.FuncIndex < 0 {
		return m.callNative(mac.FuncIndex, positional, named, caller, instr.Span)
	}

	m.depth++
	defer func() { m.depth-- }()

	if m.depth > MaxCallDepth {
		return nil, newFault("recursion-limit", instr.Span, "call depth exceeded %d", MaxCallDepth)
	}

	fn := m.Module.Funcs[mac.FuncIndex]

	ctx := &Context{
		Registers:  make([]*Cell, fn.NumRegisters),
		GroupStack: append([]int{}, caller.GroupStack...),
		pendingArgs: argBinding{
			positional: positional,
			named:      named,
			spreadArg:  fn.SpreadArg,
		},
	}

	for i := range ctx.Registers {
		ctx.Registers[i] = NewCell(Empty{})
	}

	for i, cap := range fn.Captures {
		if i < len(mac.Captures) {
			ctx.Registers[cap.Inner] = mac.Captures[i]
		}
	}

	return m.runFullContext(mac.FuncIndex, ctx)
}

// captureCells resolves the Func named by funcIdx's declared Captures
// (Outer register indices into the *enclosing* activation) against that
// activation's live registers, producing the Cell list a freshly-created
// Macro/TriggerFunction value closes over (spec.md §3's "captured-
// references"). Ordered identically to the callee Func's own Captures list
// so call() can zip them back onto Inner registers at entry.
func (m *Machine) captureCells(funcIdx int, enclosing *Context) []*Cell {
	fn := m.Module.Funcs[funcIdx]
	cells := make([]*Cell, len(fn.Captures))

	for i, cap := range fn.Captures {
		if int(cap.Outer) < len(enclosing.Registers) {
			cells[i] = enclosing.Registers[cap.Outer]
		} else {
			cells[i] = NewCell(Empty{})
		}
	}

	return cells
}
