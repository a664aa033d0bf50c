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
	"github.com/stretchr/testify/require"

	"github.com/spwn-lang/spwnc/internal/graph"
)

// S8 (spec.md §8): G3 and G4 each hold one Output trigger with identical
// parameter maps and no stackable operation. After dedup every reference to
// G4 becomes G3, and G4 is left with no triggers.
func TestTriggerDedupMergesIdenticalGroups(t *testing.T) {
	g := graph.New(0)

	g.Add(&graph.Trigger{ObjectID: 2, GroupID: 0, Params: map[int]graph.Param{
		graph.TargetParam: {Kind: graph.ParamGroup, Group: 4},
	}})
	g.Add(&graph.Trigger{ObjectID: 1, GroupID: 3, Params: map[int]graph.Param{
		62: {Kind: graph.ParamNumber, Num: 5},
	}})
	g.Add(&graph.Trigger{ObjectID: 1, GroupID: 4, Params: map[int]graph.Param{
		62: {Kind: graph.ParamNumber, Num: 5},
	}})

	changed := TriggerDedup(g)
	require.True(t, changed)

	assert.Empty(t, g.Groups[4], "G4 must be left with no triggers")

	for _, tr := range g.Groups[0] {
		target, ok := tr.Target()
		require.True(t, ok)
		assert.Equal(t, 3, target, "every reference to G4 must become G3")
	}
}
