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
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/spwn-lang/spwnc/internal/source"
)

// nativeFn is the Go implementation behind one `$.name(...)` builtin call.
// caller is the invoking lane, so e.g. trigger_fn_context can read its
// current target-graph group.
type nativeFn func(m *Machine, positional []Value, named map[source.Name]Value, caller *Context, span source.Span) (Value, error)

// Builtins maps a builtin's bare name to its negative FuncIndex, the
// convention call.go's OpCall path uses to distinguish a native call from an
// ordinary compiled Macro (spec.md §6.5's builtin-function table). The
// actual implementations live in nativeImpls, indexed the same way.
type Builtins map[string]int

var nativeImpls = []nativeFn{
	nativePrint,
	nativeEpsilon,
	nativeTriggerFnContext,
	nativeSin,
	nativeCos,
	nativeSqrt,
	nativeFloor,
	nativeAbs,
}

// DefaultBuiltins grounds spwnc's `$` namespace on the subset of the
// original interpreter's builtin_funcs.rs that doesn't depend on the
// (unimplemented) object-literal machinery: console output, the epsilon
// delay value, the running trigger-function's own group, and basic float
// math.
func DefaultBuiltins() Builtins {
	return Builtins{
		"print":              -1,
		"epsilon":            -2,
		"trigger_fn_context": -3,
		"sin":                -4,
		"cos":                -5,
		"sqrt":               -6,
		"floor":              -7,
		"abs":                -8,
	}
}

// callNative resolves and invokes a builtin by its negative FuncIndex.
func (m *Machine) callNative(funcIndex int, positional []Value, named map[source.Name]Value, caller *Context, span source.Span) (Value, error) {
	idx := -funcIndex - 1
	if idx < 0 || idx >= len(nativeImpls) {
		return nil, newFault("internal-error", span, "unknown builtin %d", funcIndex)
	}

	return nativeImpls[idx](m, positional, named, caller, span)
}

func nativePrint(m *Machine, positional []Value, _ map[source.Name]Value, _ *Context, _ source.Span) (Value, error) {
	parts := make([]string, len(positional))
	for i, v := range positional {
		parts[i] = displayString(v, m.Interner)
	}

	log.WithField("builtin", "print").Info(fmt.Sprint(parts))

	return Empty{}, nil
}

func nativeEpsilon(_ *Machine, _ []Value, _ map[source.Name]Value, _ *Context, _ source.Span) (Value, error) {
	return Epsilon{}, nil
}

func nativeTriggerFnContext(_ *Machine, _ []Value, _ map[source.Name]Value, caller *Context, _ source.Span) (Value, error) {
	if caller == nil {
		return Group{Class: IDGroup, Value: 0}, nil
	}

	g, ok := caller.Group()
	if !ok {
		return Group{Class: IDGroup, Value: 0}, nil
	}

	return Group{Class: IDGroup, Value: int64(g)}, nil
}

func floatArg(positional []Value, span source.Span) (float64, error) {
	if len(positional) == 0 {
		return 0, newFault("type-error", span, "expected a numeric argument")
	}

	f, ok := AsFloat(positional[0])
	if !ok {
		return 0, newFault("type-error", span, "expected a numeric argument, got %s", TypeName(positional[0]))
	}

	return f, nil
}

func nativeSin(_ *Machine, positional []Value, _ map[source.Name]Value, _ *Context, span source.Span) (Value, error) {
	f, err := floatArg(positional, span)
	if err != nil {
		return nil, err
	}

	return Float(math.Sin(f)), nil
}

func nativeCos(_ *Machine, positional []Value, _ map[source.Name]Value, _ *Context, span source.Span) (Value, error) {
	f, err := floatArg(positional, span)
	if err != nil {
		return nil, err
	}

	return Float(math.Cos(f)), nil
}

func nativeSqrt(_ *Machine, positional []Value, _ map[source.Name]Value, _ *Context, span source.Span) (Value, error) {
	f, err := floatArg(positional, span)
	if err != nil {
		return nil, err
	}

	return Float(math.Sqrt(f)), nil
}

func nativeFloor(_ *Machine, positional []Value, _ map[source.Name]Value, _ *Context, span source.Span) (Value, error) {
	f, err := floatArg(positional, span)
	if err != nil {
		return nil, err
	}

	return Int(int64(math.Floor(f))), nil
}

func nativeAbs(_ *Machine, positional []Value, _ map[source.Name]Value, _ *Context, span source.Span) (Value, error) {
	if len(positional) == 0 {
		return nil, newFault("type-error", span, "expected a numeric argument")
	}

	switch n := positional[0].(type) {
	case Int:
		if n < 0 {
			return -n, nil
		}

		return n, nil
	case Float:
		return Float(math.Abs(float64(n))), nil
	default:
		return nil, newFault("type-error", span, "expected a numeric argument, got %s", TypeName(n))
	}
}
