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
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LaplacianLambdaMax returns the largest eigenvalue of the symmetrically
// normalized Laplacian L = I - D^{-1/2} A D^{-1/2} of each graph in the
// batch, in batch order. D is the diagonal of in-degrees and A[t][s] = 1 for
// every directed edge (s -> t), accumulating parallel edges.
//
// It returns an error if the batch or any of its graphs is empty, if any
// node has in-degree 0 (the normalization is undefined), or if the
// eigendecomposition fails to converge. Callers that can live with an
// estimate should fall back to the upper bound 2 in that case.
func LaplacianLambdaMax(b *Batch) ([]float64, error) {
	if b.NumNodes() == 0 {
		return nil, errors.New("cannot compute lambda_max of an empty batch")
	}
	sizes := b.GraphSizes()
	offsets := make([]int, b.NumGraphs())
	for graphIdx := 1; graphIdx < b.NumGraphs(); graphIdx++ {
		offsets[graphIdx] = offsets[graphIdx-1] + sizes[graphIdx-1]
	}
	degrees := b.InDegrees()
	invSqrtDegrees := make([]float64, b.NumNodes())
	for node, degree := range degrees {
		if degree == 0 {
			return nil, errors.Errorf(
				"node %d has in-degree 0, normalized Laplacian is undefined", node)
		}
		invSqrtDegrees[node] = 1.0 / math.Sqrt(float64(degree))
	}

	// Dense per-graph Laplacians: start from the identity, subtract the
	// normalized adjacency edge by edge.
	laplacians := make([]*mat.Dense, b.NumGraphs())
	for graphIdx, size := range sizes {
		if size == 0 {
			return nil, errors.Errorf("graph %d in the batch has no nodes", graphIdx)
		}
		laplacian := mat.NewDense(size, size, nil)
		for ii := 0; ii < size; ii++ {
			laplacian.Set(ii, ii, 1)
		}
		laplacians[graphIdx] = laplacian
	}
	for edge := range b.sources {
		source, target := int(b.sources[edge]), int(b.targets[edge])
		graphIdx := int(b.membership[source])
		offset := offsets[graphIdx]
		row, col := target-offset, source-offset
		laplacian := laplacians[graphIdx]
		laplacian.Set(row, col,
			laplacian.At(row, col)-invSqrtDegrees[target]*invSqrtDegrees[source])
	}

	values := make([]float64, b.NumGraphs())
	for graphIdx, laplacian := range laplacians {
		var eigen mat.Eigen
		if ok := eigen.Factorize(laplacian, mat.EigenNone); !ok {
			return nil, errors.Errorf("eigendecomposition of graph %d failed to converge", graphIdx)
		}
		largest := math.Inf(-1)
		for _, eigenvalue := range eigen.Values(nil) {
			largest = math.Max(largest, real(eigenvalue))
		}
		values[graphIdx] = largest
	}
	return values, nil
}
