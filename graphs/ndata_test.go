/*
 *	Copyright 2024 DGL-Go Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package graphs

import (
	"testing"

	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/types/xslices"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAllSum(t *testing.T) {
	b := pathGraph()
	graphtest.RunTestGraphFn(t, "UpdateAllSum on a 3-node path",
		func(g *Graph) (inputs, outputs []*Node) {
			feat := Const(g, [][]float32{{1, 10}, {2, 20}, {3, 30}})
			inputs = []*Node{feat}
			b.LocalScope(func() {
				b.SetNodeData("h", feat)
				b.UpdateAllSum("h", "h")
				outputs = []*Node{b.PopNodeData("h")}
			})
			return
		}, []any{
			// Node 0 hears node 1, node 1 hears nodes 0 and 2, node 2 hears node 1.
			[][]float32{{2, 20}, {4, 40}, {2, 20}},
		}, xslices.Epsilon)
}

func TestUpdateAllSumWithoutEdges(t *testing.T) {
	b := New(2)
	graphtest.RunTestGraphFn(t, "UpdateAllSum without edges",
		func(g *Graph) (inputs, outputs []*Node) {
			feat := Const(g, [][]float32{{1}, {2}})
			inputs = []*Node{feat}
			b.LocalScope(func() {
				b.SetNodeData("h", feat)
				b.UpdateAllSum("h", "out")
				outputs = []*Node{b.PopNodeData("out")}
			})
			return
		}, []any{
			[][]float32{{0}, {0}},
		}, xslices.Epsilon)
}

func TestInDegreesNodeAndBroadcastNodes(t *testing.T) {
	union := Combine(pathGraph(), New(1))
	graphtest.RunTestGraphFn(t, "InDegreesNode and BroadcastNodes",
		func(g *Graph) (inputs, outputs []*Node) {
			perGraph := Const(g, [][]float32{{2}, {5}})
			outputs = []*Node{
				union.InDegreesNode(g, dtypes.Float32),
				union.BroadcastNodes(perGraph),
			}
			return
		}, []any{
			[][]float32{{1}, {2}, {1}, {0}},
			[][]float32{{2}, {2}, {2}, {5}},
		}, xslices.Epsilon)
}

func TestLocalScopeReleasesFields(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	b := pathGraph()
	g := NewGraph(backend, "local-scope")
	outer := Const(g, [][]float32{{1}, {2}, {3}})
	b.SetNodeData("keep", outer)

	b.LocalScope(func() {
		b.SetNodeData("scratch", outer)
		b.SetNodeData("keep", Const(g, [][]float32{{0}, {0}, {0}}))
		assert.NotNil(t, b.NodeData("scratch"))
	})
	// Fields set inside the scope are gone, shadowed ones are restored.
	assert.Nil(t, b.NodeData("scratch"))
	assert.Same(t, outer, b.NodeData("keep"))

	// Release must also happen when the scoped function panics.
	require.Panics(t, func() {
		b.LocalScope(func() {
			b.SetNodeData("scratch", outer)
			b.PopNodeData("never-set")
		})
	})
	assert.Nil(t, b.NodeData("scratch"))
	b.PopNodeData("keep")
}
