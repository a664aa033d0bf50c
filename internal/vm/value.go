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

// Package vm implements the register-based, context-splitting execution
// model spec.md §5 describes: a fetch-execute loop over internal/bytecode's
// flattened Func, a priority-queue of forked contexts, and a target-graph
// sink (internal/graph) for trigger/object emission. A single deterministic
// fetch-execute core is generalized to the many concurrently-scheduled
// contexts a forked arrow statement produces.
package vm

import (
	"fmt"
	"math"

	"github.com/spwn-lang/spwnc/internal/source"
)

// Value is the dynamic runtime representation of every spwn value: a closed
// sum type dispatched by a Kind tag rather than Go interface methods per
// variant, so structural equality and display can switch once instead of
// scattering methods across every type.
type Value interface {
	Kind() Kind
}

// Kind tags a Value's variant for switch dispatch, matching spec.md §5's
// value taxonomy.
type Kind int

// Value kinds.
const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindStr
	KindArray
	KindDict
	KindID
	KindRange
	KindMaybe
	KindTypeTag
	KindMacro
	KindIterator
	KindTriggerFunction
	KindInstance
	KindModule
	KindError
	KindEmpty
	KindEpsilon
	KindBuiltins
	KindGroup // a group/block/item/channel handle already bound to the target graph
)

// Int is a spwn integer.
type Int int64

// Kind implements Value.
func (Int) Kind() Kind { return KindInt }

// Float is a spwn float.
type Float float64

// Kind implements Value.
func (Float) Kind() Kind { return KindFloat }

// Bool is a spwn boolean.
type Bool bool

// Kind implements Value.
func (Bool) Kind() Kind { return KindBool }

// Str is a spwn string.
type Str string

// Kind implements Value.
func (Str) Kind() Kind { return KindStr }

// Array is a spwn array: a slice of Cells so aliasing (CopyRef) and
// in-place mutation through an index path share the same backing slots.
type Array struct {
	Elems []*Cell
}

// Kind implements Value.
func (*Array) Kind() Kind { return KindArray }

// DictEntry is one field of a Dict: its storage cell plus whether it was
// declared with spwn's `!` private-field marker (spec.md §3, DictLit
// entries).
type DictEntry struct {
	Cell    *Cell
	Private bool
}

// Dict is a spwn dictionary: an ordered field map (insertion order matters
// for display and for `impl` overload-method lookup order).
type Dict struct {
	Order   []source.Name
	Fields  map[source.Name]*DictEntry
}

// Kind implements Value.
func (*Dict) Kind() Kind { return KindDict }

// NewDict creates an empty Dict.
func NewDict() *Dict {
	return &Dict{Fields: make(map[source.Name]*DictEntry)}
}

// Set inserts or overwrites a field, preserving first-insertion order.
func (d *Dict) Set(name source.Name, v Value, private bool) {
	if e, ok := d.Fields[name]; ok {
		e.Cell.Value = v
		e.Private = private

		return
	}

	d.Order = append(d.Order, name)
	d.Fields[name] = &DictEntry{Cell: &Cell{Value: v}, Private: private}
}

// Get looks up a field by name.
func (d *Dict) Get(name source.Name) (Value, bool) {
	e, ok := d.Fields[name]
	if !ok {
		return nil, false
	}

	return e.Cell.Value, true
}

// IDClass identifies which of the four target-graph id namespaces an ID
// value belongs to (spec.md §2's `10g`/`?c`/`5b`/`3i` literal forms).
type IDClass byte

// ID namespace classes.
const (
	IDGroup   IDClass = 'g'
	IDChannel IDClass = 'c'
	IDBlock   IDClass = 'b'
	IDItem    IDClass = 'i'
)

// ID is a target-graph identifier value: a group/channel/block/item number,
// or the arbitrary-id marker (`?c`) the VM must resolve to a fresh unique
// number not colliding with any literal the program used.
type ID struct {
	Class     IDClass
	Arbitrary bool
	Value     int64
}

// Kind implements Value.
func (ID) Kind() Kind { return KindID }

// Range is a spwn `a..b` (optionally `..c` stepped) range value.
type Range struct {
	Start, End, Step int64
}

// Kind implements Value.
func (Range) Kind() Kind { return KindRange }

// Len reports how many integers this range yields.
func (r Range) Len() int64 {
	if r.Step == 0 {
		return 0
	}

	n := (r.End - r.Start) / r.Step
	if (r.End-r.Start)%r.Step != 0 {
		n++
	}

	if n < 0 {
		return 0
	}

	return n
}

// Maybe is spwn's `@Maybe` optional value: either None or Some(Inner).
type Maybe struct {
	HasValue bool
	Inner    Value
}

// Kind implements Value.
func (Maybe) Kind() Kind { return KindMaybe }

// TypeTag is a first-class reference to a type (builtin or user `type
// @Name`), the value `@Name` itself evaluates to.
type TypeTag struct {
	Name      string
	IsBuiltin bool
}

// Kind implements Value.
func (TypeTag) Kind() Kind { return KindTypeTag }

// Macro is a callable closure: a reference to a compiled Func template plus
// its captured cells and any instance it's bound to as a method.
type Macro struct {
	FuncIndex int
	Captures  []*Cell
	IsMethod  bool
	Self      Value // non-nil once bound via instance.method lookup
}

// Kind implements Value.
func (*Macro) Kind() Kind { return KindMacro }

// BindSelf returns a copy of m bound to self, used when a method is looked
// up off an Instance/TypeTag (spec.md §3's `impl` blocks).
func (m *Macro) BindSelf(self Value) *Macro {
	bound := *m
	bound.Self = self

	return &bound
}

// Iterator is spwn's lazy-evaluation handle over an array, dict or range.
type Iterator struct {
	Next func() (Value, bool)
}

// Kind implements Value.
func (*Iterator) Kind() Kind { return KindIterator }

// TriggerFunction is the value an arrow-statement/compiled trigger-func
// body reduces to before it's spawned into the graph: an opaque handle over
// the function template to run when entered plus the captures it closed
// over, exactly like Macro but never directly callable from expression
// position (only via `!{ ... }` context entry).
type TriggerFunction struct {
	FuncIndex int
	Captures  []*Cell
}

// Kind implements Value.
func (*TriggerFunction) Kind() Kind { return KindTriggerFunction }

// Instance is a user `type @Name` value: a field dict tagged with its type
// name for `is`/method-resolution purposes.
type Instance struct {
	Type   string
	Fields *Dict
}

// Kind implements Value.
func (*Instance) Kind() Kind { return KindInstance }

// Module is the value an `import` expression produces: another compilation
// unit's exported dict, read-only from the importer's perspective.
type Module struct {
	Exports *Dict
}

// Kind implements Value.
func (*Module) Kind() Kind { return KindModule }

// ErrorValue is a thrown-and-caught value, distinguished from a plain Dict
// so `catch` patterns and `@Error`'s builtin methods can special-case it.
type ErrorValue struct {
	Message Value
}

// Kind implements Value.
func (*ErrorValue) Kind() Kind { return KindError }

// Empty is spwn's unit value (the implicit result of a statement with no
// expression value, and of `()`).
type Empty struct{}

// Kind implements Value.
func (Empty) Kind() Kind { return KindEmpty }

// Epsilon is the zero-duration wait value `^`, usable as a trigger-function
// delay and nowhere else arithmetically meaningful.
type Epsilon struct{}

// Kind implements Value.
func (Epsilon) Kind() Kind { return KindEpsilon }

// BuiltinsMarker is the value the bare `$` builtins-namespace identifier
// evaluates to; member access off it dispatches into the builtin function
// table rather than a Dict lookup.
type BuiltinsMarker struct{}

// Kind implements Value.
func (BuiltinsMarker) Kind() Kind { return KindBuiltins }

// Group is a bound handle into the emitted target graph (a group/block/
// item/channel number the VM has committed to the graph, as opposed to a
// bare ID literal that hasn't necessarily been used yet).
type Group struct {
	Class IDClass
	Value int64
}

// Kind implements Value.
func (Group) Kind() Kind { return KindGroup }

// Truthy reports whether v is truthy in an `if`/`while`/`&&`/`||` position.
// Only Bool participates (spec.md has no C-style numeric truthiness); any
// other Kind here indicates a compile-time type error the compiler should
// already have diagnosed, so this panics rather than silently coercing.
func Truthy(v Value) bool {
	b, ok := v.(Bool)
	if !ok {
		panic(fmt.Sprintf("non-bool %T used in boolean context", v))
	}

	return bool(b)
}

// AsFloat widens an Int or Float to a float64 for mixed-mode arithmetic.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

// NumEq reports numeric equality across Int/Float, used by structural
// equality and `==` so `1 == 1.0` holds.
func NumEq(a, b Value) bool {
	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)

	if !aok || !bok {
		return false
	}

	return af == bf || (math.IsNaN(af) && math.IsNaN(bf))
}

// TypeName returns the builtin type name a Value's Kind presents as to
// `type_of`/`is`, mirroring spec.md §2's builtin type set.
func TypeName(v Value) string {
	switch x := v.(type) {
	case Int:
		return "@number"
	case Float:
		return "@number"
	case Bool:
		return "@bool"
	case Str:
		return "@string"
	case *Array:
		return "@array"
	case *Dict:
		return "@dictionary"
	case ID:
		return idTypeName(x.Class)
	case Group:
		return idTypeName(x.Class)
	case Range:
		return "@range"
	case Maybe:
		return "@maybe"
	case TypeTag:
		return "@type_indicator"
	case *Macro:
		return "@macro"
	case *Iterator:
		return "@iterator"
	case *TriggerFunction:
		return "@trigger_function"
	case *Instance:
		return x.Type
	case *Module:
		return "@dictionary"
	case *ErrorValue:
		return "@error"
	case Empty:
		return "@NULL"
	case Epsilon:
		return "@epsilon"
	case BuiltinsMarker:
		return "@built_in"
	default:
		return "@unknown"
	}
}

func idTypeName(c IDClass) string {
	switch c {
	case IDGroup:
		return "@group"
	case IDChannel:
		return "@item" // channels share the item-number namespace in the target format
	case IDBlock:
		return "@block"
	case IDItem:
		return "@item"
	default:
		return "@group"
	}
}
