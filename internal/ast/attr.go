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
package ast

import "github.com/spwn-lang/spwnc/internal/source"

// AttrArg is one argument to an attribute invocation: either a bare
// positional expression, or a `key = value` pair.
type AttrArg struct {
	Key   string // empty for a positional argument
	Value Expr
}

// Attribute is a single `#[name(...)]`, `#[name = expr]`, or `#![...]`
// annotation. Style/target/duplicability legality is enforced by
// internal/parser against the static registry in
// internal/parser/attributes.go, grounded on
// original_source/src/parsing/parser/attributes.rs.
type Attribute struct {
	Span  source.Span
	Name  string
	Args  []AttrArg
	Inner bool // #![...] applies to the enclosing item rather than the next one
}
