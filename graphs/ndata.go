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
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/shapes"
)

// Node data store: named per-node fields attached to the Batch while a
// computation graph is being built. Layers use it as scratch space for
// message passing; LocalScope guarantees their scratch fields never outlive
// the layer call. Fields are *Node values of the graph currently being
// built, so they must not be carried across graph builds.

// SetNodeData stores a per-node field under name. value must be shaped
// [NumNodes, ...].
func (b *Batch) SetNodeData(name string, value *Node) {
	if value.Rank() < 1 || value.Shape().Dimensions[0] != b.numNodes {
		Panicf("graphs.Batch.SetNodeData(%q): value must be shaped [numNodes=%d, ...], got %s",
			name, b.numNodes, value.Shape())
	}
	if b.ndata == nil {
		b.ndata = make(map[string]*Node)
	}
	b.ndata[name] = value
}

// NodeData returns the per-node field stored under name, or nil if it was
// never set.
func (b *Batch) NodeData(name string) *Node {
	return b.ndata[name]
}

// PopNodeData removes and returns the per-node field stored under name. It
// panics if the field does not exist.
func (b *Batch) PopNodeData(name string) *Node {
	value, found := b.ndata[name]
	if !found {
		Panicf("graphs.Batch.PopNodeData(%q): no such node data field", name)
	}
	delete(b.ndata, name)
	return value
}

// LocalScope runs fn with a scoped view of the node data store: any field
// set (or removed) inside fn is reverted when LocalScope returns, on every
// exit path, including panics. It mirrors the usual "local scope" contract
// of graph libraries, so layers can use scratch fields without leaking them
// to the caller.
func (b *Batch) LocalScope(fn func()) {
	saved := make(map[string]*Node, len(b.ndata))
	for name, value := range b.ndata {
		saved[name] = value
	}
	defer func() { b.ndata = saved }()
	fn()
}

// UpdateAllSum performs one round of message passing: the field src is
// copied along every edge as a message from its source node, and each node
// sums the messages arriving on its incoming edges into the field dst.
// Nodes with no incoming edges receive zeros.
//
// This is the gather/scatter form of multiplying by the (transposed)
// adjacency matrix: dst[i] = sum over edges (j -> i) of src[j].
func (b *Batch) UpdateAllSum(src, dst string) {
	value := b.NodeData(src)
	if value == nil {
		Panicf("graphs.Batch.UpdateAllSum: node data field %q was never set", src)
	}
	if value.Rank() != 2 {
		Panicf("graphs.Batch.UpdateAllSum: field %q must be shaped [numNodes, featuresDim], got %s",
			src, value.Shape())
	}
	g := value.Graph()
	dtype := value.DType()
	featuresDim := value.Shape().Dimensions[1]
	if b.NumEdges() == 0 {
		b.SetNodeData(dst, Zeros(g, shapes.Make(dtype, b.numNodes, featuresDim)))
		return
	}

	// One message per edge, copied from the edge's source node.
	messages := Gather(value, b.Sources(g))
	summed := Scatter(b.Targets(g), messages,
		shapes.Make(dtype, b.numNodes, featuresDim), false, false)
	b.SetNodeData(dst, summed)
}
