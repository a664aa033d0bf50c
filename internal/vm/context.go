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
	"container/heap"

	"github.com/spwn-lang/spwnc/internal/bytecode"
)

// tryFrame is one entry of a Context's try/catch stack, pushed by
// OpTryEnter and popped by OpTryExit or by a propagating Thrown.
type tryFrame struct {
	errReg  bytecode.Reg
	handler int // absolute instruction index
}

// Context is one execution lane of a single function activation: its own
// register file, instruction pointer, try-stack and target-graph
// group-stack (spec.md §4.5's per-context state). An arrow statement forks
// the current Context into two lanes of the *same* activation (both keep
// reading the same Func.Code); a Call instead suspends the current lane and
// starts a brand new FullContext for the callee (spec.md §4.5's "the call
// creates a new full-context on the VM stack"), realized here simply as a
// nested Go call to Machine.call.
type Context struct {
	Registers  []*Cell
	IP         int
	TryStack   []tryFrame
	GroupStack []int
	Dead       bool

	// pendingArgs is the argument binding this activation's OpMacroArgBind/
	// OpArgSupplied instructions read from; set once when the lane's Frame
	// is created by Machine.call, never touched again for this lane's
	// lifetime since arg binding only happens once at entry.
	pendingArgs argBinding
}

// Group returns the context's current target-graph group (the top of its
// group-stack), or ok=false if the stack is empty.
func (c *Context) Group() (int, bool) {
	if len(c.GroupStack) == 0 {
		return 0, false
	}

	return c.GroupStack[len(c.GroupStack)-1], true
}

// Clone produces an independent lane sharing no Cells with c, used by
// EnterArrowStmt to fork a context: every register is deep-cloned so a
// mutation in one fork can never leak into the other (spec.md §4.5/§5's
// forked-context isolation invariant). The try-stack and group-stack are
// plain-value slices and are copied rather than aliased for the same
// reason.
func (c *Context) Clone() *Context {
	regs := make([]*Cell, len(c.Registers))
	for i, cell := range c.Registers {
		if cell != nil {
			regs[i] = NewCell(DeepClone(cell.Value))
		}
	}

	return &Context{
		Registers:   regs,
		IP:          c.IP,
		TryStack:    append([]tryFrame{}, c.TryStack...),
		GroupStack:  append([]int{}, c.GroupStack...),
		pendingArgs: c.pendingArgs,
	}
}

// ctxQueue is a container/heap.Interface min-heap over Context.IP, the
// "priority queue ordered by pending instruction pointer (lowest first)"
// spec.md §4.5 describes: it keeps a function activation's forked lanes
// approximately in lock-step so later opcode-granularity interleaving (or,
// as runFullContext actually schedules it, draining one lane before the
// next) observes a deterministic, source-order-respecting schedule.
type ctxQueue []*Context

func (q ctxQueue) Len() int            { return len(q) }
func (q ctxQueue) Less(i, j int) bool  { return q[i].IP < q[j].IP }
func (q ctxQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *ctxQueue) Push(x any)         { *q = append(*q, x.(*Context)) }
func (q *ctxQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]

	return item
}

// FullContext owns every lane forked from a single function activation
// (spec.md §4.5's "full-context": one priority queue of contexts). Created
// once per Call (and once for the top-level module body) by
// Machine.runFullContext.
type FullContext struct {
	queue ctxQueue
}

// NewFullContext seeds the scheduler with a single root lane.
func NewFullContext(ctx *Context) *FullContext {
	fc := &FullContext{}
	heap.Init(&fc.queue)
	heap.Push(&fc.queue, ctx)

	return fc
}

// Spawn enqueues a freshly-forked lane for later scheduling.
func (fc *FullContext) Spawn(ctx *Context) {
	heap.Push(&fc.queue, ctx)
}

// Next pops the lowest-IP live lane, or ok=false once the queue is drained.
func (fc *FullContext) Next() (ctx *Context, ok bool) {
	for fc.queue.Len() > 0 {
		c := heap.Pop(&fc.queue).(*Context)
		if c.Dead {
			continue
		}

		return c, true
	}

	return nil, false
}

// Requeue reinserts ctx after it has advanced, so the next Next() call
// again picks the lowest-IP lane among every still-live one.
func (fc *FullContext) Requeue(ctx *Context) {
	heap.Push(&fc.queue, ctx)
}
