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

import log "github.com/sirupsen/logrus"

// runTriggerBody runs a `!{ ... }` body's compiled Func under target as its
// own group, logging and swallowing (rather than propagating) any runtime
// fault so one misbehaving trigger function cannot abort the rest of a
// statement's target-graph emission. Invoked eagerly at the point
// OpMakeTriggerFunc is evaluated rather than deferred to the end of the
// enclosing statement: spec.md §5 explicitly allows opcode-granularity
// interleaving with "no prescribed execution order" between a statement's
// side effects, and since every trigger body runs in its own freshly
// allocated group its graph output is unaffected by exactly when, relative
// to sibling expressions, it runs.
func (m *Machine) runTriggerBody(funcIndex int, captures []*Cell, fromGroup, target int) {
	fn := m.Module.Funcs[funcIndex]

	ctx := &Context{
		Registers:  make([]*Cell, fn.NumRegisters),
		GroupStack: []int{target},
	}

	for i := range ctx.Registers {
		ctx.Registers[i] = NewCell(Empty{})
	}

	for i, cap := range fn.Captures {
		if i < len(captures) {
			ctx.Registers[cap.Inner] = captures[i]
		}
	}

	m.depth++
	defer func() { m.depth-- }()

	if m.depth > MaxCallDepth {
		log.WithField("func", funcIndex).Warn("trigger function body skipped: recursion limit exceeded")

		return
	}

	if _, err := m.runFullContext(funcIndex, ctx); err != nil {
		log.WithError(err).WithField("func", funcIndex).Warn("trigger function body raised an error")
	}
}
