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

// Package graphs holds the batched directed-graph structure consumed by the
// GNN layers of this module.
//
// A Batch is a disjoint union of one or more directed graphs, stored as flat
// edge-index lists plus a per-node graph membership vector. It lives on the
// host; during graph (computation) building it emits the index tensors and
// gather/scatter primitives that message-passing layers need. Per-node
// features themselves are plain tensors handled by the caller -- the Batch
// only carries the structure, and a scoped scratch store for intermediate
// per-node fields (see LocalScope).
package graphs

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

// Batch is a batch of directed graphs merged into a single disjoint union.
// Nodes are numbered 0 to NumNodes-1, with the nodes of each component graph
// occupying a contiguous range, in batch order.
//
// The zero value is not usable: create one with New, FromEdges, Combine or
// FromLvlath.
type Batch struct {
	numNodes   int
	numGraphs  int
	sources    []int32
	targets    []int32
	membership []int32 // Maps node index -> graph index within the batch.

	ndata map[string]*Node
}

// New creates a Batch holding a single graph with numNodes nodes and no
// edges. Add edges with AddEdge.
func New(numNodes int) *Batch {
	if numNodes < 0 {
		Panicf("graphs.New: numNodes must be >= 0, got %d", numNodes)
	}
	return &Batch{
		numNodes:   numNodes,
		numGraphs:  1,
		membership: make([]int32, numNodes),
	}
}

// FromEdges creates a single-graph Batch with numNodes nodes and one directed
// edge per (sources[i], targets[i]) pair.
func FromEdges(numNodes int, sources, targets []int32) *Batch {
	if len(sources) != len(targets) {
		Panicf("graphs.FromEdges: sources and targets must have the same length, got %d and %d",
			len(sources), len(targets))
	}
	b := New(numNodes)
	for ii := range sources {
		b.AddEdge(int(sources[ii]), int(targets[ii]))
	}
	return b
}

// AddEdge adds one directed edge from source to target. Self-loops and
// parallel edges are allowed.
func (b *Batch) AddEdge(source, target int) {
	if source < 0 || source >= b.numNodes || target < 0 || target >= b.numNodes {
		Panicf("graphs.Batch.AddEdge: edge (%d, %d) out of range for %d nodes",
			source, target, b.numNodes)
	}
	b.sources = append(b.sources, int32(source))
	b.targets = append(b.targets, int32(target))
}

// Combine creates the disjoint union of the given batches: node indices of
// each batch are shifted past the nodes of the previous ones, and graph
// membership is renumbered accordingly. The inputs are not modified.
func Combine(batches ...*Batch) *Batch {
	if len(batches) == 0 {
		Panicf("graphs.Combine: requires at least one Batch")
	}
	union := &Batch{}
	for _, b := range batches {
		nodeOffset := int32(union.numNodes)
		graphOffset := int32(union.numGraphs)
		for _, graphIdx := range b.membership {
			union.membership = append(union.membership, graphIdx+graphOffset)
		}
		for ii := range b.sources {
			union.sources = append(union.sources, b.sources[ii]+nodeOffset)
			union.targets = append(union.targets, b.targets[ii]+nodeOffset)
		}
		union.numNodes += b.numNodes
		union.numGraphs += b.numGraphs
	}
	return union
}

// NumNodes returns the total number of nodes across all graphs in the batch.
func (b *Batch) NumNodes() int { return b.numNodes }

// NumEdges returns the total number of directed edges in the batch.
func (b *Batch) NumEdges() int { return len(b.sources) }

// NumGraphs returns the number of graphs merged in the batch.
func (b *Batch) NumGraphs() int { return b.numGraphs }

// GraphSizes returns the number of nodes of each graph in the batch.
func (b *Batch) GraphSizes() []int {
	sizes := make([]int, b.numGraphs)
	for _, graphIdx := range b.membership {
		sizes[graphIdx]++
	}
	return sizes
}

// NodeGraphIDs returns a copy of the per-node graph membership: element i is
// the index within the batch of the graph that node i belongs to.
func (b *Batch) NodeGraphIDs() []int32 {
	ids := make([]int32, b.numNodes)
	copy(ids, b.membership)
	return ids
}

// InDegrees returns the in-degree of every node, computed on the host.
func (b *Batch) InDegrees() []int32 {
	degrees := make([]int32, b.numNodes)
	for _, target := range b.targets {
		degrees[target]++
	}
	return degrees
}

// Sources returns the edge source indices as a constant shaped
// [NumEdges, 1], suitable as Gather/Scatter indices.
func (b *Batch) Sources(g *Graph) *Node {
	return InsertAxes(Const(g, b.sources), -1)
}

// Targets returns the edge target indices as a constant shaped
// [NumEdges, 1], suitable as Gather/Scatter indices.
func (b *Batch) Targets(g *Graph) *Node {
	return InsertAxes(Const(g, b.targets), -1)
}

// Membership returns the per-node graph membership as a constant shaped
// [NumNodes, 1].
func (b *Batch) Membership(g *Graph) *Node {
	return InsertAxes(Const(g, b.membership), -1)
}

// InDegreesNode returns the in-degree of every node as a tensor shaped
// [NumNodes, 1] of the given dtype, computed by scattering ones along the
// edges -- the same operation message summing uses.
func (b *Batch) InDegreesNode(g *Graph, dtype dtypes.DType) *Node {
	if b.NumEdges() == 0 {
		return Zeros(g, shapes.Make(dtype, b.numNodes, 1))
	}
	ones := Ones(g, shapes.Make(dtype, b.NumEdges(), 1))
	return Scatter(b.Targets(g), ones, shapes.Make(dtype, b.numNodes, 1), false, false)
}

// BroadcastNodes replicates a per-graph value to a per-node value: each node
// receives the value of its own graph. perGraph must be shaped [NumGraphs]
// or [NumGraphs, 1]; the result is shaped [NumNodes, 1].
func (b *Batch) BroadcastNodes(perGraph *Node) *Node {
	if perGraph.Rank() == 1 {
		perGraph = InsertAxes(perGraph, -1)
	}
	if perGraph.Rank() != 2 || perGraph.Shape().Dimensions[0] != b.numGraphs ||
		perGraph.Shape().Dimensions[1] != 1 {
		Panicf("graphs.Batch.BroadcastNodes: perGraph must be shaped [numGraphs=%d] or [numGraphs=%d, 1], got %s",
			b.numGraphs, b.numGraphs, perGraph.Shape())
	}
	return Gather(perGraph, b.Membership(perGraph.Graph()))
}
