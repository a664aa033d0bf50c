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

// Program is the parsed result of a single source file: its top-level
// statement list plus any file-level inner attributes (`#![no_std]` etc).
type Program struct {
	File       *source.File
	InnerAttrs []Attribute
	Stmts      []Stmt
}
