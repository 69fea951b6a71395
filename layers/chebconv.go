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

// Package layers implements graph neural network layers on top of the GoMLX
// framework and the graphs.Batch structure.
package layers

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	mllayers "github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"k8s.io/klog/v2"

	"github.com/lsq960124/dgl/graphs"
)

// ChebConvBuilder configures a Chebyshev spectral graph convolution.
// Create it with ChebConv, set options and call Done.
type ChebConvBuilder struct {
	ctx        *context.Context
	batch      *graphs.Batch
	feat       *Node
	outFeats   int
	k          int
	useBias    bool
	activation activations.Type

	lambdaMax     []float64
	lambdaMaxNode *Node
}

// ChebConv creates a Chebyshev spectral graph convolution layer, from the
// ChebNet paper "Convolutional Neural Networks on Graphs with Fast Localized
// Spectral Filtering" (https://arxiv.org/abs/1606.09375):
//
//	h = σ( [X_0, X_1, ..., X_{k-1}] W + bias )
//
// where X_0 = feat, X_1 = L̂·feat, X_i = 2·L̂·X_{i-1} - X_{i-2} are the
// Chebyshev polynomial terms of the rescaled normalized Laplacian
// L̂ = 2(I - D^{-1/2} A D^{-1/2})/λ_max - I, concatenated along the feature
// axis and linearly projected to outFeats dimensions.
//
// Args:
//   - ctx: context where the projection weights are created, under scope
//     "cheb_conv".
//   - b: the batch of graphs being convolved over.
//   - feat: per-node input features, shaped [b.NumNodes(), inFeats], of a
//     float dtype.
//   - outFeats: output feature dimension per node, must be >= 1.
//   - k: order of the Chebyshev expansion, must be >= 1. With k == 1 the
//     layer degenerates to a plain dense projection of feat, without any
//     graph traversal.
//
// By default the projection has a bias and the output goes through a Relu;
// see the builder methods for options, including how λ_max is supplied. The
// returned value of Done is shaped [b.NumNodes(), outFeats].
func ChebConv(ctx *context.Context, b *graphs.Batch, feat *Node, outFeats, k int) *ChebConvBuilder {
	if feat.Rank() != 2 || feat.Shape().Dimensions[0] != b.NumNodes() {
		Panicf("ChebConv: feat must be shaped [numNodes=%d, inFeats], got %s",
			b.NumNodes(), feat.Shape())
	}
	if !feat.DType().IsFloat() {
		Panicf("ChebConv: feat must be of a float dtype, got %s", feat.Shape())
	}
	if outFeats < 1 {
		Panicf("ChebConv: outFeats must be >= 1, got %d", outFeats)
	}
	if k < 1 {
		Panicf("ChebConv: the Chebyshev order k must be >= 1, got %d", k)
	}
	return &ChebConvBuilder{
		ctx:        ctx,
		batch:      b,
		feat:       feat,
		outFeats:   outFeats,
		k:          k,
		useBias:    true,
		activation: activations.TypeRelu,
	}
}

// UseBias sets whether the linear projection includes a learnable bias.
// Default is true.
func (c *ChebConvBuilder) UseBias(useBias bool) *ChebConvBuilder {
	c.useBias = useBias
	return c
}

// Activation sets the pointwise activation applied to the output. Default is
// activations.TypeRelu; use activations.TypeNone to disable.
func (c *ChebConvBuilder) Activation(activation activations.Type) *ChebConvBuilder {
	c.activation = activation
	return c
}

// LambdaMax sets the largest eigenvalue of the normalized Laplacian of each
// graph in the batch, one value per graph in batch order.
//
// If neither LambdaMax nor LambdaMaxNode is set, the eigenvalues are
// computed with graphs.LaplacianLambdaMax; should that fail, the layer logs
// a warning and uses the upper bound 2 for every graph.
func (c *ChebConvBuilder) LambdaMax(values ...float64) *ChebConvBuilder {
	c.lambdaMax = values
	return c
}

// LambdaMaxNode is like LambdaMax, but takes the eigenvalues as a tensor
// shaped [NumGraphs] or [NumGraphs, 1], e.g. when they are produced by an
// earlier part of the computation graph.
func (c *ChebConvBuilder) LambdaMaxNode(values *Node) *ChebConvBuilder {
	c.lambdaMaxNode = values
	return c
}

// Done builds the layer and returns the output, shaped
// [NumNodes, outFeats].
func (c *ChebConvBuilder) Done() *Node {
	g := c.feat.Graph()
	ctx := c.ctx.In("cheb_conv")
	lambdaMax := c.lambdaMaxPerNode(g)
	expansion := ChebyshevExpansion(c.batch, c.feat, c.k, lambdaMax)
	output := mllayers.Dense(ctx, expansion, c.useBias, c.outFeats)
	return activations.Apply(c.activation, output)
}

// lambdaMaxPerNode resolves the λ_max configuration to a per-node tensor
// shaped [NumNodes, 1] of the feature dtype.
func (c *ChebConvBuilder) lambdaMaxPerNode(g *Graph) *Node {
	dtype := c.feat.DType()
	var perGraph *Node
	switch {
	case c.lambdaMaxNode != nil:
		perGraph = c.lambdaMaxNode
		if perGraph.DType() != dtype {
			perGraph = ConvertDType(perGraph, dtype)
		}
	case c.lambdaMax != nil:
		if len(c.lambdaMax) != c.batch.NumGraphs() {
			Panicf("ChebConv: LambdaMax got %d values for a batch of %d graphs",
				len(c.lambdaMax), c.batch.NumGraphs())
		}
		perGraph = ConvertDType(Const(g, c.lambdaMax), dtype)
	default:
		values, err := graphs.LaplacianLambdaMax(c.batch)
		if err != nil {
			klog.Warningf("Largest eigenvalue not found, using default value 2 for lambda_max: %v", err)
			values = make([]float64, c.batch.NumGraphs())
			for ii := range values {
				values[ii] = 2
			}
		}
		perGraph = ConvertDType(Const(g, values), dtype)
	}
	return c.batch.BroadcastNodes(perGraph)
}

// ChebyshevExpansion computes the Chebyshev polynomial terms
// X_0, ..., X_{k-1} of the rescaled normalized Laplacian applied to feat and
// returns them concatenated along the feature axis, shaped
// [NumNodes, k*inFeats]. It is deterministic and holds no trainable state;
// ChebConv is this expansion followed by a dense projection.
//
// lambdaMax must be per-node, shaped [NumNodes, 1] -- see
// Batch.BroadcastNodes for turning per-graph values into per-node ones.
// With k == 1 the result is feat itself and lambdaMax and the edge structure
// are not consulted.
func ChebyshevExpansion(b *graphs.Batch, feat *Node, k int, lambdaMax *Node) *Node {
	if k < 1 {
		Panicf("ChebyshevExpansion: the Chebyshev order k must be >= 1, got %d", k)
	}
	if feat.Rank() != 2 || feat.Shape().Dimensions[0] != b.NumNodes() {
		Panicf("ChebyshevExpansion: feat must be shaped [numNodes=%d, inFeats], got %s",
			b.NumNodes(), feat.Shape())
	}
	if k == 1 {
		return feat
	}
	if lambdaMax.Rank() != 2 || lambdaMax.Shape().Dimensions[0] != b.NumNodes() ||
		lambdaMax.Shape().Dimensions[1] != 1 {
		Panicf("ChebyshevExpansion: lambdaMax must be shaped [numNodes=%d, 1], got %s",
			b.NumNodes(), lambdaMax.Shape())
	}

	g := feat.Graph()
	dtype := feat.DType()
	var expansion *Node
	b.LocalScope(func() {
		// Clamping the in-degrees at 1 keeps isolated nodes finite.
		dInvSqrt := PowScalar(MaxScalar(b.InDegreesNode(g, dtype), 1), -0.5)
		reNorm := MulScalar(Inverse(lambdaMax), 2)

		// unnLaplacian applies the symmetrically normalized adjacency
		// operator D^{-1/2} A D^{-1/2} to a per-node tensor via one round of
		// copy/sum message passing.
		unnLaplacian := func(x *Node) *Node {
			b.SetNodeData("h", Mul(x, dInvSqrt))
			b.UpdateAllSum("h", "h")
			return Mul(b.PopNodeData("h"), dInvSqrt)
		}

		terms := make([]*Node, 0, k)
		terms = append(terms, feat) // X_0

		h := unnLaplacian(feat)
		x1 := Add(Mul(Neg(reNorm), h), Mul(feat, AddScalar(reNorm, -1)))
		terms = append(terms, x1)

		// X_i = 2·L̂·X_{i-1} - X_{i-2}, with the L̂ application folded into
		// the adjacency operator above.
		xPrevPrev, xPrev := feat, x1
		for ii := 2; ii < k; ii++ {
			h = unnLaplacian(xPrev)
			xi := Sub(
				Add(Mul(MulScalar(reNorm, -2), h),
					Mul(MulScalar(AddScalar(reNorm, -1), 2), xPrev)),
				xPrevPrev)
			terms = append(terms, xi)
			xPrevPrev, xPrev = xPrev, xi
		}
		expansion = Concatenate(terms, -1)
	})
	return expansion
}
