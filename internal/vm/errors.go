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

	"github.com/spwn-lang/spwnc/internal/source"
)

// Thrown is the Go error wrapper around a propagating spwn `throw` value;
// caught internally by a context's try/catch stack and surfaced to the
// driver only when it escapes every context.
type Thrown struct {
	Value Value
	Span  source.Span
}

func (t *Thrown) Error() string {
	return fmt.Sprintf("uncaught throw at %s: %v", t.Span, t.Value)
}

// RuntimeError is a VM fault (pattern mismatch, type error,
// recursion-depth exceeded, stack exhaustion) that is not itself a thrown
// spwn value. A lane's innermost try frame catches it, handing the handler
// an ErrorValue carrying its message; with no try frame it aborts the run.
type RuntimeError struct {
	Kind    string
	Message string
	Span    source.Span
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Span, e.Message)
}

func newFault(kind string, span source.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}
