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
	log "github.com/sirupsen/logrus"

	"github.com/spwn-lang/spwnc/internal/source"
)

// resolveImport fetches and runs the bytecode behind path, memoizing the
// result so a path imported twice in one Machine's lifetime only executes
// once (spec.md §4.4's "an import evaluates the imported bytecode to
// completion with its own execution context").
//
// The imported module shares this Machine's Interner and Graph (so the
// imported program's trigger-graph output lands in the same target graph
// and group-id allocation never collides) but gets its own Machine, impl
// tables, and full-context stack, isolating its execution the way a
// separately-compiled source file is isolated from its importer.
func (m *Machine) resolveImport(path string, span source.Span) (*Module, error) {
	if mod, ok := m.imports[path]; ok {
		return mod, nil
	}

	if m.Importer == nil {
		log.WithField("path", path).Warn("import requested but no importer is configured; yielding an empty module")

		empty := &Module{Exports: NewDict()}
		m.imports[path] = empty

		return empty, nil
	}

	bc, err := m.Importer.Resolve(path, span)
	if err != nil {
		return nil, newFault("nonexistent-import", span, "%s", err)
	}

	sub := New(bc, m.Interner, m.Graph, m.allocGroup())
	sub.Importer = m.Importer

	log.WithField("path", path).Debug("executing imported module")

	result, err := sub.Run(sub.nextGroup - 1)
	if err != nil {
		return nil, newFault("import-error", span, "importing %q: %s", path, err)
	}

	// Pull sub's own group allocation forward so the importer's subsequent
	// allocGroup calls never collide with groups the import already used.
	if sub.nextGroup > m.nextGroup {
		m.nextGroup = sub.nextGroup
	}

	mod, ok := result.(*Module)
	if !ok {
		mod = &Module{Exports: NewDict()}
	}

	m.imports[path] = mod

	return mod, nil
}
