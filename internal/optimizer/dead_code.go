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

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/spwn-lang/spwnc/internal/graph"
)

// DeadCode marks unreachable or purely-internal triggers as deleted
// (spec.md §4.6 pass 2). From every reserved start group it DFS-walks the
// outgoing Target graph; a trigger survives only if its own group is
// reachable from some start group AND it is either an Output trigger, or it
// targets (directly or transitively) a reserved group. Group ids are dense
// small integers, so reachable/visited-in-progress tracking uses
// bits-and-blooms/bitset rather than map[int]bool, cheaper for hot
// graph-traversal code than a boolean map.
func DeadCode(g *graph.Graph) {
	live := reachableFromStarts(g)
	reaches := reachesReserved(g)

	for _, gid := range g.AllGroups() {
		if live.Test(uint(gid)) {
			continue
		}

		for _, t := range g.Groups[gid] {
			t.Deleted = true
		}
	}

	for _, gid := range g.AllGroups() {
		if !live.Test(uint(gid)) {
			continue
		}

		for _, t := range g.Groups[gid] {
			if t.Deleted {
				continue
			}

			if t.Role() == graph.RoleOutput {
				continue
			}

			target, ok := t.Target()
			if !ok || !reaches.Test(uint(target)) {
				t.Deleted = true
			}
		}
	}

	g.RemoveDeleted()
}

// reachableFromStarts returns every group reachable from a start group by
// following each non-deleted trigger's Target edge.
func reachableFromStarts(g *graph.Graph) *bitset.BitSet {
	live := bitset.New(0)

	var visit func(gid int)
	visit = func(gid int) {
		if live.Test(uint(gid)) {
			return
		}

		live.Set(uint(gid))

		for _, t := range g.Groups[gid] {
			if t.Deleted {
				continue
			}

			if target, ok := t.Target(); ok {
				visit(target)
			}
		}
	}

	for _, s := range g.StartGroups {
		visit(s)
	}

	return live
}

// reachesReserved returns every group that either is reserved or can reach a
// reserved group by following Target edges forward. A group caught in a
// cycle before reachability is determined is conservatively treated as
// reaching one (spec.md §4.6 pass 2's "loops are kept conservatively"): every
// group on the cycle ends up marked true once the recursion unwinds, because
// each caller's own result is OR-ed with the in-progress true returned to it.
func reachesReserved(g *graph.Graph) *bitset.BitSet {
	reaches := bitset.New(0)
	done := bitset.New(0)
	inProgress := bitset.New(0)

	var dfs func(gid int) bool
	dfs = func(gid int) bool {
		if done.Test(uint(gid)) {
			return reaches.Test(uint(gid))
		}

		if inProgress.Test(uint(gid)) {
			return true
		}

		if g.Reserved[gid] {
			done.Set(uint(gid))
			reaches.Set(uint(gid))

			return true
		}

		inProgress.Set(uint(gid))

		result := false

		for _, t := range g.Groups[gid] {
			if t.Deleted {
				continue
			}

			if target, ok := t.Target(); ok && dfs(target) {
				result = true
			}
		}

		inProgress.Clear(uint(gid))
		done.Set(uint(gid))

		if result {
			reaches.Set(uint(gid))
		}

		return result
	}

	for _, gid := range g.AllGroups() {
		dfs(gid)
	}

	for gid := range g.Reserved {
		dfs(gid)
	}

	return reaches
}
