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
	"fmt"
	"strconv"
	"strings"

	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

// registerImpl records an `impl @Type { ... }` method/field dict, shared by
// every Instance of that type (spec.md §3's impl semantics: methods are
// resolved off the type, not stored per-instance).
func (m *Machine) registerImpl(typeName string, dict *Dict) {
	m.impls[typeName] = dict
}

// registerOverload records a single operator-overload macro out of an impl
// block (spwn's `_add_`/`_eq_`/... convention), keyed by type and opcode.
func (m *Machine) registerOverload(typeName string, op bytecode.Op, macro Value) {
	mac, ok := macro.(*Macro)
	if !ok {
		return
	}

	m.overloads[overloadKey(typeName, op)] = mac
}

// index evaluates `container[key]` for arrays (integer index, negative
// counts from the end), dicts (string/name key) and ranges (integer index).
func (m *Machine) index(container, key Value, span source.Span) (Value, error) {
	switch c := container.(type) {
	case *Array:
		i, ok := key.(Int)
		if !ok {
			return nil, newFault("type-error", span, "array index must be a number")
		}

		idx := int64(i)
		if idx < 0 {
			idx += int64(len(c.Elems))
		}

		if idx < 0 || idx >= int64(len(c.Elems)) {
			return nil, newFault("index-error", span, "array index %d out of range (len %d)", int64(i), len(c.Elems))
		}

		return c.Elems[idx].Value, nil

	case *Dict:
		s, ok := key.(Str)
		if !ok {
			return nil, newFault("type-error", span, "dictionary key must be a string")
		}

		v, ok := c.Get(m.Interner.Intern(string(s)))
		if !ok {
			return nil, newFault("key-error", span, "no such key %q", string(s))
		}

		return v, nil

	case Range:
		i, ok := key.(Int)
		if !ok {
			return nil, newFault("type-error", span, "range index must be a number")
		}

		idx := int64(i)
		if idx < 0 || idx >= c.Len() {
			return nil, newFault("index-error", span, "range index %d out of range", idx)
		}

		return Int(c.Start + idx*c.Step), nil

	default:
		return nil, newFault("type-error", span, "%s is not indexable", TypeName(container))
	}
}

// slice evaluates `container[a:b:c]`, reading up to three optional bound
// registers out of args (a missing bound register is encoded as -1 by the
// compiler).
func (m *Machine) slice(container Value, args []bytecode.Reg, lane *Context, span source.Span) (Value, error) {
	bound := func(i int, def int64) int64 {
		if i >= len(args) || args[i] < 0 {
			return def
		}

		if n, ok := lane.Registers[args[i]].Value.(Int); ok {
			return int64(n)
		}

		return def
	}

	switch c := container.(type) {
	case *Array:
		n := int64(len(c.Elems))
		start, end, step := normalizeSliceBounds(bound(0, 0), bound(1, n), bound(2, 1), n)

		var elems []*Cell
		for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
			elems = append(elems, c.Elems[i])
		}

		return &Array{Elems: elems}, nil

	case Str:
		n := int64(len(c))
		start, end, step := normalizeSliceBounds(bound(0, 0), bound(1, n), bound(2, 1), n)

		var b strings.Builder
		for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
			b.WriteByte(c[i])
		}

		return Str(b.String()), nil

	default:
		return nil, newFault("type-error", span, "%s cannot be sliced", TypeName(container))
	}
}

func normalizeSliceBounds(start, end, step, n int64) (int64, int64, int64) {
	if step == 0 {
		step = 1
	}

	if start < 0 {
		start += n
	}

	if end < 0 {
		end += n
	}

	if start < 0 {
		start = 0
	}

	if end > n {
		end = n
	}

	return start, end, step
}

// member evaluates `.field` access: Dict field, Instance field, or a bound
// impl-block method (self-bound at lookup time per spec.md §3).
func (m *Machine) member(v Value, name source.Name, span source.Span) (Value, error) {
	switch x := v.(type) {
	case *Dict:
		if val, ok := x.Get(name); ok {
			return val, nil
		}
	case *Module:
		if val, ok := x.Exports.Get(name); ok {
			return val, nil
		}
	case *Instance:
		if val, ok := x.Fields.Get(name); ok {
			return val, nil
		}

		if impl, ok := m.impls[x.Type]; ok {
			if val, ok := impl.Get(name); ok {
				if mac, ok := val.(*Macro); ok {
					return mac.BindSelf(x), nil
				}

				return val, nil
			}
		}
	}

	return nil, newFault("member-error", span, "%s has no member %q", TypeName(v), m.Interner.Text(name))
}

// associated evaluates `Type::member`: a type's impl member (on a TypeTag)
// or a builtin function (on the `$` builtin namespace).
func (m *Machine) associated(v Value, name source.Name, span source.Span) (Value, error) {
	switch x := v.(type) {
	case TypeTag:
		if impl, ok := m.impls[x.Name]; ok {
			if val, ok := impl.Get(name); ok {
				return val, nil
			}
		}
	case BuiltinsMarker:
		if mac, ok := m.Builtins[m.Interner.Text(name)]; ok {
			return &Macro{FuncIndex: mac}, nil
		}
	}

	return nil, newFault("member-error", span, "%s has no associated member %q", TypeName(v), m.Interner.Text(name))
}

// length implements OpLen.
func (m *Machine) length(v Value, span source.Span) (int64, error) {
	switch x := v.(type) {
	case *Array:
		return int64(len(x.Elems)), nil
	case Str:
		return int64(len(x)), nil
	case *Dict:
		return int64(len(x.Order)), nil
	case Range:
		return x.Len(), nil
	default:
		return 0, newFault("type-error", span, "%s has no length", TypeName(v))
	}
}

// contains implements the `in` operator.
func (m *Machine) contains(container, v Value) (bool, error) {
	switch c := container.(type) {
	case *Array:
		for _, e := range c.Elems {
			if Equal(e.Value, v) {
				return true, nil
			}
		}

		return false, nil
	case *Dict:
		s, ok := v.(Str)
		if !ok {
			return false, nil
		}

		_, has := c.Get(m.Interner.Intern(string(s)))

		return has, nil
	case Str:
		s, ok := v.(Str)
		if !ok {
			return false, nil
		}

		return strings.Contains(string(c), string(s)), nil
	case Range:
		n, ok := v.(Int)
		if !ok {
			return false, nil
		}

		return int64(n) >= c.Start && int64(n) < c.End, nil
	default:
		return false, nil
	}
}

// makeIterator builds the lazy Iterator OpMakeIter drives for `for x in ...`.
func (m *Machine) makeIterator(v Value) (*Iterator, error) {
	switch c := v.(type) {
	case *Array:
		i := 0

		return &Iterator{Next: func() (Value, bool) {
			if i >= len(c.Elems) {
				return nil, false
			}

			v := c.Elems[i].Value
			i++

			return v, true
		}}, nil

	case *Dict:
		i := 0

		return &Iterator{Next: func() (Value, bool) {
			if i >= len(c.Order) {
				return nil, false
			}

			name := c.Order[i]
			i++

			val, _ := c.Get(name)

			return &Array{Elems: []*Cell{NewCell(Str(m.Interner.Text(name))), NewCell(val)}}, true
		}}, nil

	case Range:
		cur := c.Start

		return &Iterator{Next: func() (Value, bool) {
			if (c.Step > 0 && cur >= c.End) || (c.Step < 0 && cur <= c.End) {
				return nil, false
			}

			v := cur
			cur += c.Step

			return Int(v), true
		}}, nil

	default:
		return nil, newFault("type-error", source.Span{}, "%s is not iterable", TypeName(v))
	}
}

// displayString renders v for string concatenation/interpolation, mirroring
// spec.md §3's value-display rules (not the debug %v form).
func displayString(v Value, interner *source.Interner) string {
	switch x := v.(type) {
	case Int:
		return strconv.FormatInt(int64(x), 10)
	case Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(x))
	case Str:
		return string(x)
	case *Array:
		parts := make([]string, len(x.Elems))
		for i, e := range x.Elems {
			parts[i] = displayString(e.Value, interner)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case *Dict:
		parts := make([]string, len(x.Order))
		for i, name := range x.Order {
			val, _ := x.Get(name)
			parts[i] = fmt.Sprintf("%s: %s", interner.Text(name), displayString(val, interner))
		}

		return "{" + strings.Join(parts, ", ") + "}"
	case Empty:
		return "Null"
	case Epsilon:
		return "^"
	case Maybe:
		if !x.HasValue {
			return "?"
		}

		return displayString(x.Inner, interner) + "?"
	case *Instance:
		return fmt.Sprintf("%s%s", x.Type, displayString(x.Fields, interner))
	case ID:
		return fmt.Sprintf("%d%c", x.Value, x.Class)
	case Group:
		return fmt.Sprintf("%d%c", x.Value, x.Class)
	default:
		return TypeName(v)
	}
}

// formatString implements $-style string interpolation (`"x = {a}"`): args
// names the register holding each `{...}` slot's already-evaluated value, in
// source order, spliced between the literal segments baked into s by the
// compiler (each segment separated by the 0x00 sentinel byte).
func (m *Machine) formatString(s Str, args []bytecode.Reg, lane *Context) string {
	segments := strings.Split(string(s), "\x00")

	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(seg)

		if i < len(args) {
			b.WriteString(displayString(lane.Registers[args[i]].Value, m.Interner))
		}
	}

	return b.String()
}

// typeNameMatches implements a pattern's type-check against either a builtin
// type name or a user type's name. Builtin names arrive without the `@`
// that TypeName puts in front of them, and "dict" stands for "@dictionary".
func typeNameMatches(v Value, name source.Name, interner *source.Interner) bool {
	want := interner.Text(name)
	if want == "dict" {
		want = "dictionary"
	}

	got := TypeName(v)

	return got == want || got == "@"+want
}
