// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"iter"
	"slices"

	"github.com/gomlx/exceptions"
)

// Iter iterates sequentially, in row-major order, over all possible indices of the given shape.
//
// It yields the flat index (counter) and a slice of indices for each axis.
//
// To avoid allocating the slice of indices, the yielded indices is owned by the Iter() method:
// don't change it inside the loop.
//
// A shape with any dimension 0 yields nothing; a scalar yields one empty index.
func (s Shape) Iter() iter.Seq2[int, []int64] {
	return func(yield func(int, []int64) bool) {
		rank := s.Rank()
		indices := make([]int64, rank)
		if rank == 0 {
			_ = yield(0, indices)
			return
		}

		// Only iterate over the "non-trivial" axes (dimension > 1), last axis first.
		spatialAxes := make([]int, 0, rank)
		for axis, dim := range s.dimensions {
			if dim <= 0 {
				return
			}
			if dim > 1 {
				spatialAxes = append(spatialAxes, axis)
			}
		}
		slices.Reverse(spatialAxes)

		flatIdx := 0
	yielder:
		for {
			if !yield(flatIdx, indices) {
				return // Consumer requested to stop iteration.
			}
			flatIdx++

			// Increment indices to the next set of coordinates
			// (row-major order: the last index changes fastest).
			for _, axis := range spatialAxes {
				indices[axis]++
				if indices[axis] < s.dimensions[axis] {
					continue yielder
				}
				// Carry-over to the next higher-order axis.
				indices[axis] = 0
			}

			// That was the last index.
			return
		}
	}
}

// Unravel converts a row-major flat index into the per-axis indices of the shape.
//
// It panics if flatIdx is out of range.
func (s Shape) Unravel(flatIdx int64) []int64 {
	if flatIdx < 0 || flatIdx >= s.NumElements() {
		exceptions.Panicf("Shape.Unravel(%d) out-of-bounds for shape %s", flatIdx, s)
	}
	indices := make([]int64, s.Rank())
	for axis := s.Rank() - 1; axis >= 0; axis-- {
		indices[axis] = flatIdx % s.dimensions[axis]
		flatIdx /= s.dimensions[axis]
	}
	return indices
}
