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
	"github.com/spwn-lang/spwnc/internal/graph"
	"github.com/spwn-lang/spwnc/internal/source"
)

// MaxCallDepth bounds the full-context call stack spec.md §5 describes as
// "~256"; a deeper nesting is almost always runaway recursion rather than a
// legitimate program.
const MaxCallDepth = 256

// Importer resolves an import path to an already-compiled bytecode.Module,
// the VM-side half of compiler.Importer: the compiler resolves paths at
// compile time only to validate they exist and to emit OpImport, but the
// actual Module value an `import` expression evaluates to is only known by
// running the imported bytecode, which needs a second resolve at execution
// time to fetch that bytecode. Supplied by internal/driver, backed by
// internal/cache and internal/stdlib.
type Importer interface {
	Resolve(path string, span source.Span) (*bytecode.Module, error)
}

// Machine executes one compiled bytecode.Module to completion, appending
// every object it emits to a graph.Graph. One Machine runs one top-level
// module (or one stdlib import, via a fresh Machine sharing the same
// Interner/Graph); it holds no state that would need to be reset between
// separate compilations.
type Machine struct {
	Module   *bytecode.Module
	Interner *source.Interner
	Builtins Builtins
	Graph    *graph.Graph
	Importer Importer

	nextGroup int
	emitOrder float64
	depth     int

	// imports memoizes a resolved-and-executed import by path within this
	// Machine's lifetime, so `import "foo"` appearing twice in one module
	// runs foo's bytecode once, matching spec.md §4.4's bytecode-reuse
	// requirement for repeated imports of the same path.
	imports map[string]*Module

	// impls and overloads hold `impl @Type { ... }` method/overload tables
	// keyed by type name (and, for overloads, by overloadKey) rather than on
	// the Instance value itself, since every instance of a type shares the
	// same impl block (spec.md §3's `impl` semantics).
	impls     map[string]*Dict
	overloads map[string]*Macro
}

// New creates a Machine ready to run mod against g, allocating fresh groups
// starting at startGroup (the reserved top-level execution group).
func New(mod *bytecode.Module, interner *source.Interner, g *graph.Graph, startGroup int) *Machine {
	return &Machine{
		Module:    mod,
		Interner:  interner,
		Builtins:  DefaultBuiltins(),
		Graph:     g,
		nextGroup: startGroup + 1,
		imports:   make(map[string]*Module),
		impls:     make(map[string]*Dict),
		overloads: make(map[string]*Macro),
	}
}

// allocGroup reserves the next fresh target-graph group id, used by
// MakeTriggerFunc (spec.md §4.5).
func (m *Machine) allocGroup() int {
	g := m.nextGroup
	m.nextGroup++

	return g
}

// nextOrder hands out monotonically increasing emission order values for
// newly-added triggers, independent of any context's scheduling order
// (spec.md §5: "trigger-graph emission order is captured at emission
// time").
func (m *Machine) nextOrderVal() float64 {
	o := m.emitOrder
	m.emitOrder++

	return o
}

// Run executes the module body (func index 0) in a fresh context rooted at
// startGroup and returns its module-export dict, if any.
func (m *Machine) Run(startGroup int) (Value, error) {
	ctx := &Context{
		Registers:  make([]*Cell, m.Module.Funcs[0].NumRegisters),
		GroupStack: []int{startGroup},
	}

	for i := range ctx.Registers {
		ctx.Registers[i] = NewCell(Empty{})
	}

	return m.runFullContext(0, ctx)
}

// runFullContext drains every lane of a single function activation (spec.md
// §4.5's "full-context"): starting from ctx, it schedules lanes by lowest
// IP first, runs each until it returns or falls off the end of the code (an
// EnterArrowStmt fork only queues the new lane; the forking lane keeps
// running), and returns the value delivered by whichever
// lane returns first ("have-returned" in spec.md's words) once every lane
// has drained. Lanes spawned by a fork that runs after the first Return
// still execute to completion for their trigger-graph side effects before
// runFullContext returns, per spec.md §5's "no prescribed execution order"
// allowance.
func (m *Machine) runFullContext(funcIdx int, ctx *Context) (Value, error) {
	fn := m.Module.Funcs[funcIdx]
	fc := NewFullContext(ctx)

	var result Value = Empty{}
	haveReturned := false

	for {
		lane, ok := fc.Next()
		if !ok {
			break
		}

		for {
			if lane.IP >= len(fn.Code) {
				if !haveReturned {
					result = Empty{}
					haveReturned = true
				}

				break
			}

			instr := fn.Code[lane.IP]

			ret, done, err := m.exec(funcIdx, fn, lane, instr, fc)
			if err != nil {
				return nil, err
			}

			if done {
				if !haveReturned {
					result = ret
					haveReturned = true
				}

				break
			}
		}
	}

	return result, nil
}

// exec dispatches a single instruction against lane, mutating its IP and
// registers in place. done=true means lane has finished via Return; a throw
// or fault that no try frame catches comes back as err instead. Otherwise
// the caller's inner loop continues with lane's updated IP.
func (m *Machine) exec(funcIdx int, fn *bytecode.Func, lane *Context, instr bytecode.Instr, fc *FullContext) (ret Value, done bool, err error) {
	reg := func(r bytecode.Reg) Value { return lane.Registers[r].Value }
	setReg := func(r bytecode.Reg, v Value) { lane.Registers[r] = NewCell(v) }

	switch instr.Op {
	case bytecode.OpLoadInt:
		setReg(instr.Dst, Int(fn.Consts[instr.ConstID].(int64)))
	case bytecode.OpLoadFloat:
		setReg(instr.Dst, Float(fn.Consts[instr.ConstID].(float64)))
	case bytecode.OpLoadBool:
		setReg(instr.Dst, Bool(instr.Imm != 0))
	case bytecode.OpLoadString:
		setReg(instr.Dst, Str(fn.Consts[instr.ConstID].(string)))
	case bytecode.OpLoadNull:
		setReg(instr.Dst, Empty{})
	case bytecode.OpLoadID:
		idc := fn.Consts[instr.ConstID].(bytecode.IDConst)
		setReg(instr.Dst, ID{Class: IDClass(idc.Class), Arbitrary: idc.Arbitrary, Value: idc.Value})
	case bytecode.OpLoadEmptyArray:
		setReg(instr.Dst, &Array{})
	case bytecode.OpLoadEmptyDict:
		setReg(instr.Dst, NewDict())
	case bytecode.OpLoadBuiltinsNS:
		setReg(instr.Dst, BuiltinsMarker{})
	case bytecode.OpLoadMacro, bytecode.OpMakeMacro:
		setReg(instr.Dst, &Macro{FuncIndex: int(instr.A), Captures: m.captureCells(int(instr.A), lane)})
	case bytecode.OpMarkMacroMethod:
		if mac, ok := reg(instr.A).(*Macro); ok {
			mac.IsMethod = true
		}

	case bytecode.OpCopyDeep:
		setReg(instr.Dst, DeepClone(reg(instr.A)))
	case bytecode.OpCopyRef:
		lane.Registers[instr.Dst] = lane.Registers[instr.A]

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpFloorDiv,
		bytecode.OpMod, bytecode.OpPow, bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpShl, bytecode.OpShr:
		v, e := m.arith(instr.Op, reg(instr.A), reg(instr.B), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpCmpEq:
		setReg(instr.Dst, Bool(Equal(reg(instr.A), reg(instr.B))))
	case bytecode.OpCmpNeq:
		setReg(instr.Dst, Bool(!Equal(reg(instr.A), reg(instr.B))))
	case bytecode.OpCmpLt, bytecode.OpCmpGt, bytecode.OpCmpLte, bytecode.OpCmpGte:
		v, e := m.compare(instr.Op, reg(instr.A), reg(instr.B), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpRange:
		a, aok := reg(instr.A).(Int)
		b, bok := reg(instr.B).(Int)
		if !aok || !bok {
			return m.unwindOrThrow(lane, newFault("type-error", instr.Span, "range bounds must be integers"), instr.Span)
		}
		setReg(instr.Dst, Range{Start: int64(a), End: int64(b), Step: 1})

	case bytecode.OpIs:
		setReg(instr.Dst, Bool(TypeName(reg(instr.A)) == typeNameOf(reg(instr.B))))
	case bytecode.OpIn:
		v, e := m.contains(reg(instr.B), reg(instr.A))
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, Bool(v))
	case bytecode.OpAs:
		v, e := m.convert(reg(instr.A), typeNameOf(reg(instr.B)), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpAddAssign, bytecode.OpSubAssign, bytecode.OpMulAssign, bytecode.OpDivAssign,
		bytecode.OpModAssign, bytecode.OpPowAssign, bytecode.OpBitAndAssign, bytecode.OpBitOrAssign,
		bytecode.OpShlAssign, bytecode.OpShrAssign:
		v, e := m.arith(augmentedBase(instr.Op), reg(instr.Dst), reg(instr.A), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpNeg:
		v, e := m.negate(reg(instr.A), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)
	case bytecode.OpNot:
		setReg(instr.Dst, Bool(!Truthy(reg(instr.A))))
	case bytecode.OpPreIncr:
		v, e := m.arith(bytecode.OpAdd, reg(instr.A), Int(1), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)
	case bytecode.OpPreDecr:
		v, e := m.arith(bytecode.OpSub, reg(instr.A), Int(1), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpJump:
		lane.IP = instr.Target
		return nil, false, nil
	case bytecode.OpJumpIfFalse:
		if !Truthy(reg(instr.A)) {
			lane.IP = instr.Target
			return nil, false, nil
		}
	case bytecode.OpJumpIfTrue:
		if Truthy(reg(instr.A)) {
			lane.IP = instr.Target
			return nil, false, nil
		}
	case bytecode.OpUnwrapOrJump:
		mb, ok := reg(instr.A).(Maybe)
		if !ok || !mb.HasValue {
			lane.IP = instr.Target
			return nil, false, nil
		}
		lane.Registers[instr.A] = NewCell(mb.Inner)

	case bytecode.OpMismatchThrowIfFalse:
		if !Truthy(reg(instr.A)) {
			return m.unwindOrThrow(lane, newFault("pattern-mismatch", instr.Span, "value does not match pattern"), instr.Span)
		}

	case bytecode.OpMakeArray:
		elems := make([]*Cell, len(instr.Args))
		for i, a := range instr.Args {
			elems[i] = NewCell(reg(a))
		}
		setReg(instr.Dst, &Array{Elems: elems})

	case bytecode.OpMakeDict:
		d := NewDict()
		for i, a := range instr.Args {
			d.Set(instr.Names[i], reg(a), instr.Flags[i])
		}
		setReg(instr.Dst, d)

	case bytecode.OpWrapMaybe:
		setReg(instr.Dst, Maybe{HasValue: true, Inner: reg(instr.A)})
	case bytecode.OpMaybeNone:
		setReg(instr.Dst, Maybe{})

	case bytecode.OpMakeIter:
		it, e := m.makeIterator(reg(instr.A))
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, it)
	case bytecode.OpIterNext:
		it, ok := reg(instr.A).(*Iterator)
		if !ok {
			return m.unwindOrThrow(lane, newFault("type-error", instr.Span, "not an iterator"), instr.Span)
		}
		v, hasNext := it.Next()
		if hasNext {
			setReg(instr.Dst, Maybe{HasValue: true, Inner: v})
		} else {
			setReg(instr.Dst, Maybe{})
		}

	case bytecode.OpIndex, bytecode.OpIndexMem:
		v, e := m.index(reg(instr.A), reg(instr.B), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		if instr.Op == bytecode.OpIndexMem {
			lane.Registers[instr.Dst] = lane.Registers[instr.A]
		} else {
			setReg(instr.Dst, v)
		}

	case bytecode.OpSlice:
		v, e := m.slice(reg(instr.A), instr.Args, lane, instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpMember, bytecode.OpMemberMem:
		v, e := m.member(reg(instr.A), instr.Name, instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpAssociated, bytecode.OpAssociatedMem:
		v, e := m.associated(reg(instr.A), instr.Name, instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpTypeMember:
		setReg(instr.Dst, Str(typeNameOf(reg(instr.A))))

	case bytecode.OpLen:
		n, e := m.length(reg(instr.A), instr.Span)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, Int(n))

	case bytecode.OpTypeOf:
		setReg(instr.Dst, TypeTag{Name: TypeName(reg(instr.A)), IsBuiltin: true})

	case bytecode.OpStringConcat:
		setReg(instr.Dst, Str(displayString(reg(instr.A), m.Interner)+displayString(reg(instr.B), m.Interner)))
	case bytecode.OpStringFormat:
		setReg(instr.Dst, Str(m.formatString(reg(instr.A).(Str), instr.Args, lane)))

	case bytecode.OpMakeInstance:
		fields := NewDict()
		for i, a := range instr.Args {
			fields.Set(instr.Names[i], reg(a), false)
		}
		setReg(instr.Dst, &Instance{Type: string(reg(instr.A).(Str)), Fields: fields})

	case bytecode.OpImpl:
		// Registers type A's overload/method dict B; spwnc keeps impl tables
		// on the Machine rather than the Value so overload dispatch (arith.go)
		// can see them regardless of how many Instance values share the type.
		m.registerImpl(string(reg(instr.A).(Str)), reg(instr.B).(*Dict))

	case bytecode.OpPatTypeCheck:
		setReg(instr.Dst, Bool(typeNameMatches(reg(instr.A), instr.Name, m.Interner)))
	case bytecode.OpPatArrayLen:
		arr, ok := reg(instr.A).(*Array)
		setReg(instr.Dst, Bool(ok))
		lane.Registers[instr.B] = NewCell(Int(0))
		if ok {
			lane.Registers[instr.B] = NewCell(Int(len(arr.Elems)))
		}
	case bytecode.OpPatDictHasKey:
		d, ok := reg(instr.A).(*Dict)
		if inst, isInst := reg(instr.A).(*Instance); isInst {
			d, ok = inst.Fields, true
		}
		if ok {
			_, has := d.Get(instr.Name)
			ok = has
		}
		setReg(instr.Dst, Bool(ok))
	case bytecode.OpPatIsInstance:
		inst, ok := reg(instr.A).(*Instance)
		setReg(instr.Dst, Bool(ok && inst.Type == m.Interner.Text(instr.Name)))

	case bytecode.OpMacroArgBind:
		v, ok := lane.pendingArgs.bind(int(instr.Imm), instr.Name)
		if !ok {
			setReg(instr.Dst, Empty{})
		} else {
			setReg(instr.Dst, v)
		}
	case bytecode.OpArgSupplied:
		setReg(instr.Dst, Bool(lane.pendingArgs.supplied(int(instr.Imm), instr.Name)))

	case bytecode.OpCall:
		v, e := m.call(reg(instr.A), instr, lane, fn)
		if e != nil {
			return m.unwindOrThrow(lane, e, instr.Span)
		}
		setReg(instr.Dst, v)

	case bytecode.OpReturn:
		v := Value(Empty{})
		if instr.A != 0 || len(fn.Code) > 0 {
			v = reg(instr.A)
		}
		if instr.Imm == 1 {
			d, ok := v.(*Dict)
			if !ok {
				return m.unwindOrThrow(lane, newFault("invalid-module-return", instr.Span,
					"a module must return a dict, got %s", TypeName(v)), instr.Span)
			}
			v = &Module{Exports: d}
		}
		return v, true, nil

	case bytecode.OpMakeTriggerFunc:
		group, ok := lane.Group()
		if !ok {
			group = m.allocGroup()
		}
		target := m.allocGroup()
		setReg(instr.Dst, Group{Class: IDClass('g'), Value: int64(target)})
		m.runTriggerBody(int(instr.A), m.captureCells(int(instr.A), lane), group, target)

	case bytecode.OpCallTriggerFunc:
		targetGroup, _ := reg(instr.A).(Group)
		from, _ := lane.Group()
		m.Graph.Add(&graph.Trigger{
			ObjectID: graph.SpawnObjectID,
			GroupID:  from,
			Params:   map[int]graph.Param{graph.TargetParam: {Kind: graph.ParamGroup, Group: int(targetGroup.Value)}},
			Order:    m.nextOrderVal(),
		})

	case bytecode.OpSetContextGroup:
		grp, _ := reg(instr.A).(Group)
		lane.GroupStack = append(lane.GroupStack, int(grp.Value))

	case bytecode.OpEnterArrowStmt:
		clone := lane.Clone()
		clone.IP = lane.IP + 1
		lane.IP = instr.Target
		fc.Spawn(clone)
		return nil, false, nil

	case bytecode.OpRegisterOverload:
		m.registerOverload(string(reg(instr.A).(Str)), bytecode.Op(instr.Imm), reg(instr.B))

	case bytecode.OpImport:
		path, _ := fn.Consts[instr.ConstID].(string)
		mod, err := m.resolveImport(path, instr.Span)
		if err != nil {
			return m.unwindOrThrow(lane, err, instr.Span)
		}
		setReg(instr.Dst, mod)
	case bytecode.OpExtractImport:
		if mod, ok := reg(instr.A).(*Module); ok {
			setReg(instr.Dst, mod.Exports)
		} else {
			setReg(instr.Dst, reg(instr.A))
		}

	case bytecode.OpPop, bytecode.OpDup:
		// Stack-shuffle leftovers from expression-statement lowering; the
		// register machine has no explicit operand stack to shuffle, so
		// these are no-ops here.

	case bytecode.OpThrow:
		return m.unwindOrThrow(lane, &Thrown{Value: reg(instr.A), Span: instr.Span}, instr.Span)

	case bytecode.OpTryEnter:
		lane.TryStack = append(lane.TryStack, tryFrame{errReg: instr.Dst, handler: instr.Target})
	case bytecode.OpTryExit:
		if len(lane.TryStack) > 0 {
			lane.TryStack = lane.TryStack[:len(lane.TryStack)-1]
		}

	case bytecode.OpBreak, bytecode.OpContinue:
		// Lowered away by the compiler into plain Jump targets; any surviving
		// instance is a dead leftover with nothing left to do at runtime.

	default:
		return m.unwindOrThrow(lane, newFault("internal-error", instr.Span, "unhandled opcode %s", instr.Op), instr.Span)
	}

	lane.IP++

	return nil, false, nil
}

// unwindOrThrow raises err on lane: if a try frame is active it unwinds to
// the handler and resumes there, otherwise it propagates out of
// runFullContext entirely (spec.md §5: "if none exists... the error aborts
// the VM").
func (m *Machine) unwindOrThrow(lane *Context, err error, span source.Span) (Value, bool, error) {
	thrown, isThrown := err.(*Thrown)

	if len(lane.TryStack) > 0 {
		frame := lane.TryStack[len(lane.TryStack)-1]
		lane.TryStack = lane.TryStack[:len(lane.TryStack)-1]
		lane.IP = frame.handler

		var caught Value = Empty{}
		if isThrown {
			caught = thrown.Value
		} else if rf, ok := err.(*RuntimeError); ok {
			caught = &ErrorValue{Message: Str(rf.Message)}
		}

		lane.Registers[frame.errReg] = NewCell(caught)

		return nil, false, nil
	}

	return nil, false, err
}

func typeNameOf(v Value) string {
	switch x := v.(type) {
	case Str:
		return string(x)
	case TypeTag:
		return x.Name
	default:
		return TypeName(v)
	}
}
