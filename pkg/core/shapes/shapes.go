// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and DynamicShape, the extents of logical arrays and of their shards.
//
// A Shape is an ordered list of non-negative dimensions. Unlike the tensor container, a dimension of
// 0 is legal here: it shows up as the extent of a boundary shard when an axis has fewer elements than
// shards.
//
// A DynamicShape is a Shape read as an upper bound, with a tag marking which axes are only bounded
// (their actual size is known at runtime).
//
// ## Glossary
//
//   - Rank: number of axes of a Shape.
//   - Axis: the index of a dimension.
//   - Dimension: the size of a Shape along one of its axes.
//
// Shapes are immutable once built: accessors return copies.
package shapes

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/shardmap/pkg/support/xhash"
)

// Shape is the ordered list of dimensions of an array (or of one of its shards).
//
// Use Make to create a new shape. The zero value is a scalar (rank 0).
type Shape struct {
	dimensions []int64
}

// Make returns a Shape with the given dimensions.
//
// It panics if any dimension is negative: that is a programming error, not a recoverable condition.
func Make(dimensions ...int64) Shape {
	for axis, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%v): axis %d has negative dimension %d", dimensions, axis, dim)
		}
	}
	return Shape{dimensions: slices.Clone(dimensions)}
}

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.dimensions) }

// IsScalar returns whether the shape has no axes.
func (s Shape) IsScalar() bool { return s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int64 {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.dimensions[adjustedAxis]
}

// Dimensions returns a copy of the dimensions of the shape.
func (s Shape) Dimensions() []int64 {
	return slices.Clone(s.dimensions)
}

// NumElements returns the product of all dimensions: 1 for a scalar, 0 if any dimension is 0.
func (s Shape) NumElements() int64 {
	count := int64(1)
	for _, dim := range s.dimensions {
		count *= dim
	}
	return count
}

// Memory returns the number of bytes used to store an array of the given shape and dtype.
func (s Shape) Memory(dtype dtypes.DType) uintptr {
	return dtype.Memory() * uintptr(s.NumElements())
}

// Equal compares the dimensions of the two shapes.
func (s Shape) Equal(s2 Shape) bool {
	return slices.Equal(s.dimensions, s2.dimensions)
}

// Hash returns a structural hash of the shape, stable within the process.
func (s Shape) Hash() uint64 {
	return xhash.Ints(xhash.New(), s.dimensions).Sum64()
}

// String implements fmt.Stringer. E.g.: "[2,3]".
func (s Shape) String() string {
	return joinInts(s.dimensions, ",")
}

// Strides returns the strides for each axis of the shape, assuming a "row-major" layout.
//
// Notice the strides are **not in bytes**, but in indices.
func (s Shape) Strides() (strides []int64) {
	rank := s.Rank()
	if rank == 0 {
		return
	}
	strides = make([]int64, rank)
	currentStride := int64(1)
	for axis := rank - 1; axis >= 0; axis-- {
		strides[axis] = currentStride
		currentStride *= s.dimensions[axis]
	}
	return
}

func joinInts[T ~int | ~int64](values []T, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, sep) + "]"
}
