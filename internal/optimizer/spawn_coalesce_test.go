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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spwn-lang/spwnc/internal/graph"
)

func spawnTrigger(group, target int, delay float64) *graph.Trigger {
	return &graph.Trigger{
		ObjectID: graph.SpawnObjectID,
		GroupID:  group,
		Params: map[int]graph.Param{
			graph.TargetParam: {Kind: graph.ParamGroup, Group: target},
			graph.DelayParam:  {Kind: graph.ParamNumber, Num: delay},
		},
	}
}

// S7 (spec.md §8): G0 ->(0.1) G1 ->(0.2) G2, G1 has no other triggers and
// only that one inbound connection, followed by an Output trigger keyed to
// G2. After optimization exactly one spawn edge G0 ->(0.3) G2 remains and
// G1 is no longer a target.
func TestSpawnCoalesceCollapsesChain(t *testing.T) {
	g := graph.New(0)
	g.Add(spawnTrigger(0, 1, 0.1))
	g.Add(spawnTrigger(1, 2, 0.2))
	g.Add(&graph.Trigger{ObjectID: 1, GroupID: 2})

	NetworkClean(g)
	changed := SpawnCoalesce(g)
	NetworkClean(g)

	assert.True(t, changed)

	var spawns []*graph.Trigger
	for _, gid := range g.AllGroups() {
		for _, tr := range g.Groups[gid] {
			if !tr.Deleted && tr.Role() == graph.RoleSpawn {
				spawns = append(spawns, tr)
			}
		}
	}

	if assert.Len(t, spawns, 1) {
		target, ok := spawns[0].Target()
		assert.True(t, ok)
		assert.Equal(t, 2, target)
		assert.Equal(t, 0, spawns[0].GroupID)
		assert.InDelta(t, 0.3, spawns[0].Delay(), 1e-9)
	}

	for _, tr := range g.Groups[1] {
		if target, ok := tr.Target(); ok {
			assert.NotEqual(t, 1, target, "no surviving trigger may still target G1")
		}
	}
}
