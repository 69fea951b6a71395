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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleGraph returns the bidirected triangle (3-cycle).
func triangleGraph() *Batch {
	return FromEdges(3,
		[]int32{0, 1, 1, 2, 2, 0},
		[]int32{1, 0, 2, 1, 0, 2})
}

func TestLaplacianLambdaMax(t *testing.T) {
	// The path P3 is bipartite: its normalized Laplacian spectrum is
	// {0, 1, 2}, so lambda_max is exactly 2.
	values, err := LaplacianLambdaMax(pathGraph())
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.InDelta(t, 2.0, values[0], 1e-9)

	// The triangle's normalized Laplacian spectrum is {0, 1.5, 1.5}.
	values, err = LaplacianLambdaMax(triangleGraph())
	require.NoError(t, err)
	assert.InDelta(t, 1.5, values[0], 1e-9)

	// Batched: one value per graph, in batch order.
	values, err = LaplacianLambdaMax(Combine(pathGraph(), triangleGraph()))
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.InDelta(t, 2.0, values[0], 1e-9)
	assert.InDelta(t, 1.5, values[1], 1e-9)
}

func TestLaplacianLambdaMaxErrors(t *testing.T) {
	_, err := LaplacianLambdaMax(New(0))
	assert.Error(t, err)

	// An isolated node has in-degree 0, for which the normalization is
	// undefined: the caller is expected to fall back to the bound 2.
	_, err = LaplacianLambdaMax(New(1))
	assert.Error(t, err)

	_, err = LaplacianLambdaMax(Combine(pathGraph(), New(2)))
	assert.Error(t, err)
}
