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

import "github.com/spwn-lang/spwnc/internal/source"

// Cell is the interior-mutable box every register, array element, and dict
// field ultimately stores its value in. OpCopyRef aliases a Cell directly
// (both bindings observe the same mutation); OpCopyDeep clones the Value it
// holds into a fresh Cell. spwnc relies on the Go garbage collector to
// reclaim a Cell once unreachable, so no explicit refcount or release step
// is needed here.
type Cell struct {
	Value Value
}

// NewCell boxes v in a fresh Cell.
func NewCell(v Value) *Cell { return &Cell{Value: v} }

// DeepClone produces an independent copy of v: Array/Dict recurse into
// fresh Cells for every element/field (CopyDeep assignment semantics,
// spec.md §3); every other Value kind is immutable from the language's
// perspective and is returned as-is.
func DeepClone(v Value) Value {
	switch x := v.(type) {
	case *Array:
		elems := make([]*Cell, len(x.Elems))
		for i, c := range x.Elems {
			elems[i] = NewCell(DeepClone(c.Value))
		}

		return &Array{Elems: elems}

	case *Dict:
		clone := NewDict()
		for _, name := range x.Order {
			e := x.Fields[name]
			clone.Set(name, DeepClone(e.Cell.Value), e.Private)
		}

		return clone

	case *Instance:
		return &Instance{Type: x.Type, Fields: DeepClone(x.Fields).(*Dict)}

	case Maybe:
		if !x.HasValue {
			return x
		}

		return Maybe{HasValue: true, Inner: DeepClone(x.Inner)}

	default:
		return v
	}
}

// CellsOf returns the storage cells of dict d in insertion order, for
// closure-capture-by-field iteration and for display.
func CellsOf(d *Dict) []*Cell {
	cells := make([]*Cell, 0, len(d.Order))
	for _, n := range d.Order {
		cells = append(cells, d.Fields[n].Cell)
	}

	return cells
}

// NameOf resolves an interned source.Name back to text, used by display and
// by runtime diagnostics that must name a missing field/method.
func NameOf(interner *source.Interner, n source.Name) string {
	if interner == nil {
		return ""
	}

	return interner.Text(n)
}
