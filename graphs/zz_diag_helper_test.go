package graphs

// Temporary validation scaffolding: copy of pathGraph from graphs_test.go,
// which is excluded while its lvlath dependency cannot be resolved.
// This file is removed before the repo is finalized.

// pathGraph returns the bidirected path 0 - 1 - 2.
func pathGraph() *Batch {
	return FromEdges(3, []int32{0, 1, 1, 2}, []int32{1, 0, 2, 1})
}
