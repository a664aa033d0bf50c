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
package optimizer

import "github.com/spwn-lang/spwnc/internal/graph"

// ToggleConflicts reports whether groupID is toggle-conflicted: two or more
// of its inbound spawn connections carry different ToggleGroupParam values.
// The spawn-coalescing pass (spec.md §4.6 pass 3) consults this before
// proposing a rename, since collapsing two differently-toggled connections
// into one group would silently merge distinct toggle behavior.
// SPEC_FULL.md §6.6 grounds this explicitly on
// original_source/src/gd/optimizer/group_toggling.rs, which spec.md's pass 3
// only references in passing ("no toggle-group conflict") without defining.
func ToggleConflicts(g *graph.Graph, groupID int) bool {
	seen := map[int]bool{}

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if t.Deleted || t.Role() != graph.RoleSpawn {
				continue
			}

			target, ok := t.Target()
			if !ok || target != groupID {
				continue
			}

			tg, ok := t.Params[graph.ToggleGroupParam]
			if !ok {
				continue
			}

			seen[tg.Group] = true
		}
	}

	return len(seen) > 1
}
