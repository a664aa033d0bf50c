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
	"fmt"
	"sort"

	"github.com/spwn-lang/spwnc/internal/graph"
)

// epsilonClamp is the minimum delay (seconds) an epsilon-marked spawn chain
// is clamped to, spec.md §4.6 pass 3's "50 ms".
const epsilonClamp = 0.05

type spawnEdge struct {
	target  int
	delay   float64
	epsilon bool
	trigger *graph.Trigger
}

type collapsedConn struct {
	origin, dest int
	delay        float64
	epsilon      bool
	rep          *graph.Trigger
}

// SpawnCoalesce collapses chains of Spawn-role triggers into single direct
// connections (spec.md §4.6 pass 3). It reports whether the graph changed,
// so Run's coalesce/dedup loop can detect a fixed point.
func SpawnCoalesce(g *graph.Graph) bool {
	edges := spawnEdgesByGroup(g)
	if len(edges) == 0 {
		return false
	}

	isOutput := outputGroups(g)
	inputs := inputGroups(g)

	var collapsed []collapsedConn

	seenKey := map[string]bool{}

	for _, origin := range inputs {
		visited := map[int]bool{}

		var dfs func(gid int, delay float64, epsilon bool, rep *graph.Trigger)
		dfs = func(gid int, delay float64, epsilon bool, rep *graph.Trigger) {
			cyclePoint := visited[gid]
			visited[gid] = true

			if gid != origin && (isOutput[gid] || cyclePoint) {
				key := fmt.Sprintf("%d>%d@%.6f", origin, gid, delay)

				if !seenKey[key] {
					seenKey[key] = true
					collapsed = append(collapsed, collapsedConn{origin, gid, delay, epsilon, rep})
				}

				if cyclePoint {
					return
				}
			}

			for _, e := range edges[gid] {
				nextRep := rep
				if nextRep == nil {
					nextRep = e.trigger
				}

				dfs(e.target, delay+e.delay, epsilon || e.epsilon, nextRep)
			}
		}

		dfs(origin, 0, false, nil)
	}

	if len(collapsed) == 0 {
		return false
	}

	destCount := map[int]int{}
	originCount := map[int]int{}

	for _, c := range collapsed {
		destCount[c.dest]++
		originCount[c.origin]++
	}

	renames := map[int]int{}

	var fresh []*graph.Trigger

	for _, c := range collapsed {
		delay := c.delay
		if c.epsilon && delay < epsilonClamp {
			delay = epsilonClamp
		}

		conflict := ToggleConflicts(g, c.dest) || ToggleConflicts(g, c.origin)

		switch {
		case delay == 0 && !conflict && !g.Reserved[c.dest] && destCount[c.dest] == 1 && c.dest != c.origin:
			renames[c.dest] = c.origin
		case delay == 0 && !conflict && !g.Reserved[c.origin] && originCount[c.origin] == 1 && c.dest != c.origin:
			renames[c.origin] = c.dest
		default:
			order := float64(0)
			if c.rep != nil {
				order = c.rep.Order
			}

			fresh = append(fresh, &graph.Trigger{
				ObjectID: graph.SpawnObjectID,
				GroupID:  c.origin,
				Params: map[int]graph.Param{
					graph.TargetParam: {Kind: graph.ParamGroup, Group: c.dest},
					graph.DelayParam:  {Kind: graph.ParamNumber, Num: delay},
				},
				Order: order,
			})
		}
	}

	for _, list := range edges {
		for _, e := range list {
			e.trigger.Deleted = true
		}
	}

	for _, f := range fresh {
		g.Add(f)
	}

	g.RemoveDeleted()

	if len(renames) > 0 {
		g.Rename(renames)
	}

	return true
}

func spawnEdgesByGroup(g *graph.Graph) map[int][]spawnEdge {
	edges := make(map[int][]spawnEdge)

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if t.Deleted || t.Role() != graph.RoleSpawn {
				continue
			}

			target, ok := t.Target()
			if !ok {
				continue
			}

			edges[gid] = append(edges[gid], spawnEdge{
				target:  target,
				delay:   t.Delay(),
				epsilon: t.Params[graph.DelayParam].Kind == graph.ParamEpsilonDelay,
				trigger: t,
			})
		}
	}

	return edges
}

func outputGroups(g *graph.Graph) map[int]bool {
	out := make(map[int]bool)

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if !t.Deleted && t.Role() != graph.RoleSpawn {
				out[gid] = true
			}
		}
	}

	return out
}

// inputGroups returns every group with a non-spawn activation (NonSpawnIn >
// 0, as computed by the preceding NetworkClean) or that is itself reserved,
// sorted for deterministic DFS order.
func inputGroups(g *graph.Graph) []int {
	set := map[int]bool{}

	for gid := range g.Reserved {
		set[gid] = true
	}

	for _, s := range g.StartGroups {
		set[s] = true
	}

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if t.NonSpawnIn > 0 {
				set[gid] = true
			}
		}
	}

	ids := make([]int, 0, len(set))
	for gid := range set {
		ids = append(ids, gid)
	}

	sort.Ints(ids)

	return ids
}
