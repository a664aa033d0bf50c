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

// NetworkClean recomputes ConnectionsIn/NonSpawnIn for every group by
// counting inbound Target-parameter edges, then removes deleted triggers
// (spec.md §4.6 pass 1). It is safe, and expected, to call this again after
// any later pass changes the graph's edges.
func NetworkClean(g *graph.Graph) {
	connIn := make(map[int]int)
	nonSpawnIn := make(map[int]int)

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if t.Deleted {
				continue
			}

			target, ok := t.Target()
			if !ok {
				continue
			}

			connIn[target]++

			if t.Role() != graph.RoleSpawn {
				nonSpawnIn[target]++
			}
		}
	}

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			t.ConnectionsIn = connIn[t.GroupID]
			t.NonSpawnIn = nonSpawnIn[t.GroupID]
		}
	}

	g.RemoveDeleted()
}
