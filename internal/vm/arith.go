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
	"math"
	"strconv"

	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

// augmentedBase maps an augmented-assignment opcode back to the plain binary
// opcode the VM reuses to compute its right-hand side (spec.md §4.4's "every
// augmented assignment desugars to dst = dst OP rhs").
func augmentedBase(op bytecode.Op) bytecode.Op {
	switch op {
	case bytecode.OpAddAssign:
		return bytecode.OpAdd
	case bytecode.OpSubAssign:
		return bytecode.OpSub
	case bytecode.OpMulAssign:
		return bytecode.OpMul
	case bytecode.OpDivAssign:
		return bytecode.OpDiv
	case bytecode.OpModAssign:
		return bytecode.OpMod
	case bytecode.OpPowAssign:
		return bytecode.OpPow
	case bytecode.OpBitAndAssign:
		return bytecode.OpBitAnd
	case bytecode.OpBitOrAssign:
		return bytecode.OpBitOr
	case bytecode.OpShlAssign:
		return bytecode.OpShl
	case bytecode.OpShrAssign:
		return bytecode.OpShr
	default:
		return op
	}
}

// arith evaluates a binary arithmetic/bitwise opcode. When the left operand
// is a user Instance, it defers to that type's `impl` overload macro
// (spec.md §6.1's "operator overload resolution order": user overload first,
// builtin numeric rule otherwise); any other non-numeric operand is a type
// error.
func (m *Machine) arith(op bytecode.Op, a, b Value, span source.Span) (Value, error) {
	if inst, ok := a.(*Instance); ok {
		if mac, ok := m.overloads[overloadKey(inst.Type, op)]; ok {
			return m.callOverload(mac, inst, b, span)
		}

		return nil, newFault("type-error", span, "%s has no %s overload", inst.Type, op)
	}

	if ab, ok := a.(Bool); ok {
		if bb, ok := b.(Bool); ok {
			switch op {
			case bytecode.OpBitAnd:
				return ab && bb, nil
			case bytecode.OpBitOr:
				return ab || bb, nil
			}
		}
	}

	ai, aIsInt := a.(Int)
	bi, bIsInt := b.(Int)

	if aIsInt && bIsInt && op != bytecode.OpDiv && op != bytecode.OpPow {
		switch op {
		case bytecode.OpAdd:
			return ai + bi, nil
		case bytecode.OpSub:
			return ai - bi, nil
		case bytecode.OpMul:
			return ai * bi, nil
		case bytecode.OpFloorDiv:
			if bi == 0 {
				return nil, newFault("divide-by-zero", span, "integer division by zero")
			}

			return Int(math.Floor(float64(ai) / float64(bi))), nil
		case bytecode.OpMod:
			if bi == 0 {
				return nil, newFault("divide-by-zero", span, "modulo by zero")
			}

			return ((ai % bi) + bi) % bi, nil
		case bytecode.OpBitAnd:
			return ai & bi, nil
		case bytecode.OpBitOr:
			return ai | bi, nil
		case bytecode.OpShl:
			return ai << uint(bi), nil
		case bytecode.OpShr:
			return ai >> uint(bi), nil
		}
	}

	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)

	if !aok || !bok {
		return nil, newFault("type-error", span, "cannot apply %s to %s and %s", op, TypeName(a), TypeName(b))
	}

	switch op {
	case bytecode.OpAdd:
		return Float(af + bf), nil
	case bytecode.OpSub:
		return Float(af - bf), nil
	case bytecode.OpMul:
		return Float(af * bf), nil
	case bytecode.OpDiv:
		if bf == 0 {
			return nil, newFault("divide-by-zero", span, "division by zero")
		}

		return Float(af / bf), nil
	case bytecode.OpFloorDiv:
		if bf == 0 {
			return nil, newFault("divide-by-zero", span, "integer division by zero")
		}

		return Int(math.Floor(af / bf)), nil
	case bytecode.OpMod:
		if bf == 0 {
			return nil, newFault("divide-by-zero", span, "modulo by zero")
		}

		return Float(math.Mod(math.Mod(af, bf)+bf, bf)), nil
	case bytecode.OpPow:
		return Float(math.Pow(af, bf)), nil
	case bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpShl, bytecode.OpShr:
		return nil, newFault("type-error", span, "%s requires integer operands", op)
	default:
		return nil, newFault("internal-error", span, "unhandled arithmetic opcode %s", op)
	}
}

// compare evaluates OpCmpLt/Gt/Lte/Gte; strings compare lexically, numbers
// numerically, and any other pairing is a type error (spec.md has no
// cross-kind ordering).
func (m *Machine) compare(op bytecode.Op, a, b Value, span source.Span) (Value, error) {
	if as, ok := a.(Str); ok {
		bs, ok := b.(Str)
		if !ok {
			return nil, newFault("type-error", span, "cannot compare %s and %s", TypeName(a), TypeName(b))
		}

		return Bool(strCompare(op, string(as), string(bs))), nil
	}

	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)

	if !aok || !bok {
		return nil, newFault("type-error", span, "cannot compare %s and %s", TypeName(a), TypeName(b))
	}

	switch op {
	case bytecode.OpCmpLt:
		return Bool(af < bf), nil
	case bytecode.OpCmpGt:
		return Bool(af > bf), nil
	case bytecode.OpCmpLte:
		return Bool(af <= bf), nil
	case bytecode.OpCmpGte:
		return Bool(af >= bf), nil
	default:
		return nil, newFault("internal-error", span, "unhandled comparison opcode %s", op)
	}
}

func strCompare(op bytecode.Op, a, b string) bool {
	switch op {
	case bytecode.OpCmpLt:
		return a < b
	case bytecode.OpCmpGt:
		return a > b
	case bytecode.OpCmpLte:
		return a <= b
	case bytecode.OpCmpGte:
		return a >= b
	default:
		return false
	}
}

// negate evaluates unary `-`.
func (m *Machine) negate(v Value, span source.Span) (Value, error) {
	switch n := v.(type) {
	case Int:
		return -n, nil
	case Float:
		return -n, nil
	default:
		return nil, newFault("type-error", span, "cannot negate %s", TypeName(v))
	}
}

// convert evaluates `as`, spec.md §3's small builtin conversion set.
func (m *Machine) convert(v Value, typeName string, span source.Span) (Value, error) {
	switch typeName {
	case "@number":
		switch n := v.(type) {
		case Int, Float:
			return n, nil
		case Str:
			if f, err := parseFloat(string(n)); err == nil {
				return Float(f), nil
			}

			return nil, newFault("conversion-error", span, "%q is not a number", string(n))
		case Bool:
			if n {
				return Int(1), nil
			}

			return Int(0), nil
		}
	case "@string":
		return Str(displayString(v, m.Interner)), nil
	case "@bool":
		if b, ok := v.(Bool); ok {
			return b, nil
		}
	}

	return nil, newFault("conversion-error", span, "cannot convert %s to %s", TypeName(v), typeName)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// overloadKey names the user-overloadable operator an `impl` block's
// OpRegisterOverload call targets, keyed by the type name plus the binary
// opcode it overrides.
func overloadKey(typeName string, op bytecode.Op) string {
	return typeName + "#" + op.String()
}

// callOverload invokes a matched operator-overload macro bound to self,
// passing rhs as its sole argument.
func (m *Machine) callOverload(mac *Macro, self Value, rhs Value, span source.Span) (Value, error) {
	fn := m.Module.Funcs[mac.FuncIndex]

	ctx := &Context{
		Registers: make([]*Cell, fn.NumRegisters),
		pendingArgs: argBinding{
			positional: []Value{self, rhs},
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

	m.depth++
	defer func() { m.depth-- }()

	if m.depth > MaxCallDepth {
		return nil, newFault("recursion-limit", span, "call depth exceeded %d", MaxCallDepth)
	}

	return m.runFullContext(mac.FuncIndex, ctx)
}
