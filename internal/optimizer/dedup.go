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
	"strings"

	"github.com/spwn-lang/spwnc/internal/graph"
)

// TriggerDedup collapses groups with identical "behavior" into one
// representative (spec.md §4.6 pass 4), iterating to a fixed point, and
// reports whether anything changed.
//
// "Non-start, non-stackable" groups are the dedup candidates; the data model
// has no separate stackable flag, so this is read as excluding every
// reserved group (start groups plus any group the user pinned to a specific
// literal id), which must keep their identity regardless of behavior,
// matching the one case spec.md is unambiguous about ("non-start").
func TriggerDedup(g *graph.Graph) bool {
	changed := false

	for {
		if !dedupOnce(g) {
			break
		}

		changed = true
	}

	return changed
}

func dedupOnce(g *graph.Graph) bool {
	behavior := map[int]string{}

	var candidates []int

	for _, gid := range g.AllGroups() {
		if g.Reserved[gid] {
			continue
		}

		behavior[gid] = groupBehaviorKey(g, gid)
		candidates = append(candidates, gid)
	}

	sort.Ints(candidates)

	seen := map[string]int{}
	renames := map[int]int{}

	for _, gid := range candidates {
		key := behavior[gid]

		rep, ok := seen[key]
		if !ok {
			seen[key] = gid
			continue
		}

		renames[gid] = rep
	}

	if len(renames) == 0 {
		return false
	}

	g.Rename(renames)

	return true
}

// groupBehaviorKey hashes a group's trigger multiset: each trigger's own
// canonical (object id, sorted param-id -> canonical-value pairs, quantized
// order) tuple, sorted so the overall key is independent of trigger order
// within the group (a true multiset comparison).
func groupBehaviorKey(g *graph.Graph, gid int) string {
	triggers := g.Groups[gid]
	parts := make([]string, 0, len(triggers))

	for _, t := range triggers {
		parts = append(parts, triggerBehaviorKey(t))
	}

	sort.Strings(parts)

	return strings.Join(parts, "|")
}

func triggerBehaviorKey(t *graph.Trigger) string {
	ids := make([]int, 0, len(t.Params))
	for pid := range t.Params {
		ids = append(ids, pid)
	}

	sort.Ints(ids)

	var b strings.Builder

	fmt.Fprintf(&b, "%d", t.ObjectID)

	for _, pid := range ids {
		fmt.Fprintf(&b, ",%d=%s", pid, canonicalParam(t.Params[pid]))
	}

	fmt.Fprintf(&b, ";q=%d", quantizeOrder(t.Order))

	return b.String()
}

// quantizeOrder rounds an emission-order float to an integer at
// millisecond-ish granularity, per spec.md §4.6 pass 4's "paired with a
// quantized emission-order integer": two triggers emitted close enough
// together compare equal, but distinctly-ordered triggers don't collapse.
func quantizeOrder(order float64) int64 {
	return int64(order * 1000)
}

// canonicalParam renders one parameter value the way spec.md §4.6 pass 4
// requires, reusing graph.EncodeParam's §6 emitted-artifact rules: by the
// time the optimizer runs, every group/channel/block/item id is already a
// concrete int (the VM never leaves an "arbitrary" placeholder unresolved),
// so the `?<id>` form spec.md mentions for arbitrary ids never applies here.
func canonicalParam(p graph.Param) string {
	return graph.EncodeParam(p)
}
