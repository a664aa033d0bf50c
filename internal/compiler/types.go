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
package compiler

import "github.com/spwn-lang/spwnc/internal/source"

// builtinTypeNames is consulted by TypeDefStmt and InstanceDestructure
// lowering: a custom type may not shadow one of these (KindBuiltinTypeOverride),
// and no InstanceDestructure/MakeInstance may target one
// (KindBuiltinTypeDestructure / KindCannotInstanceBuiltin, the latter
// enforced at runtime by internal/vm).
var builtinTypeNames = map[string]bool{
	"number": true, "int": true, "float": true, "bool": true, "string": true,
	"array": true, "dict": true, "group": true, "color": true, "block": true,
	"item": true, "range": true, "maybe": true, "macro": true, "macro_pattern": true,
	"type": true, "object": true, "trigger_function": true, "epsilon": true,
	"empty": true, "null": true, "spwn": true, "builtin": true,
}

// IsBuiltinType reports whether name is one of the builtin type tags
// spec.md §3 enumerates under Type-tag.
func IsBuiltinType(name string) bool { return builtinTypeNames[name] }

// defineType registers a custom type declaration under name, replacing any
// earlier entry of that name. It performs no checks itself: the caller
// (stmt.go's TypeDefStmt lowering) enforces the uniqueness/shadowing
// invariants from spec.md §3 by checking IsBuiltinType and lookupType first,
// so it can emit the diagnostic with the right Kind.
func (c *Compiler) defineType(name string, span source.Span, imported, private bool) *TypeInfo {
	info := &TypeInfo{Name: name, Span: span, Imported: imported, Private: private}
	c.types[name] = info

	return info
}

// lookupType resolves a type name against every type known so far (locally
// declared or imported), returning nil for KindNonexistentType.
func (c *Compiler) lookupType(name string) *TypeInfo {
	return c.types[name]
}
