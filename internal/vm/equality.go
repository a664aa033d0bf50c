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

// Equal implements spec.md §4.5's structural-equality rule used by `==`,
// `match` and `is`: numeric promotion across Int/Float, elementwise
// array/dict comparison, Maybe comparison on both the has-value flag and
// inner value, and identity comparison for everything else a user program
// cannot meaningfully deep-compare (macros, iterators, trigger functions).
func Equal(a, b Value) bool {
	if NumEq(a, b) {
		return true
	}

	switch x := a.(type) {
	case Str:
		y, ok := b.(Str)

		return ok && x == y
	case Bool:
		y, ok := b.(Bool)

		return ok && x == y
	case Empty:
		_, ok := b.(Empty)

		return ok
	case Epsilon:
		_, ok := b.(Epsilon)

		return ok
	case ID:
		y, ok := b.(ID)

		return ok && x == y
	case Group:
		y, ok := b.(Group)

		return ok && x == y
	case Range:
		y, ok := b.(Range)

		return ok && x == y
	case TypeTag:
		y, ok := b.(TypeTag)

		return ok && x.Name == y.Name
	case Maybe:
		y, ok := b.(Maybe)
		if !ok || x.HasValue != y.HasValue {
			return false
		}

		return !x.HasValue || Equal(x.Inner, y.Inner)
	case *Array:
		y, ok := b.(*Array)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}

		for i := range x.Elems {
			if !Equal(x.Elems[i].Value, y.Elems[i].Value) {
				return false
			}
		}

		return true
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || len(x.Order) != len(y.Order) {
			return false
		}

		for _, name := range x.Order {
			xv, _ := x.Get(name)
			yv, ok := y.Get(name)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}

		return true
	case *Instance:
		y, ok := b.(*Instance)

		return ok && x.Type == y.Type && Equal(x.Fields, y.Fields)
	case *ErrorValue:
		y, ok := b.(*ErrorValue)

		return ok && Equal(x.Message, y.Message)
	case *Macro:
		return a == b
	case *TriggerFunction:
		return a == b
	case *Iterator:
		return a == b
	default:
		return false
	}
}
