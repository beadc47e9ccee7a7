// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package index defines Index, a position in a multi-dimensional array, and Domain, a rectangular
// region of an array.
//
// Both are immutable values. Arithmetic between operands of different rank is a programming error
// and panics.
package index

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shardmap/pkg/support/xhash"
)

// Index is a position in a multi-dimensional array: one coordinate per axis.
type Index struct {
	elements []int64
}

// New creates an Index with the given coordinates.
func New(elements ...int64) Index {
	return Index{elements: slices.Clone(elements)}
}

// Zeros returns the origin Index for the given rank.
func Zeros(rank int) Index {
	return Index{elements: make([]int64, rank)}
}

// Rank returns the number of coordinates.
func (idx Index) Rank() int { return len(idx.elements) }

// Elements returns a copy of the coordinates.
func (idx Index) Elements() []int64 { return slices.Clone(idx.elements) }

// At returns the coordinate for the given axis.
func (idx Index) At(axis int) int64 { return idx.elements[axis] }

func (idx Index) checkRank(op string, rank int) {
	if idx.Rank() != rank {
		exceptions.Panicf("Index%s %s: rank mismatch, %d vs %d", idx, op, idx.Rank(), rank)
	}
}

// Add returns idx + offset, element-wise.
func (idx Index) Add(offset Index) Index {
	idx.checkRank("Add", offset.Rank())
	result := make([]int64, idx.Rank())
	for i, v := range idx.elements {
		result[i] = v + offset.elements[i]
	}
	return Index{elements: result}
}

// Sub returns idx - offset, element-wise.
func (idx Index) Sub(offset Index) Index {
	idx.checkRank("Sub", offset.Rank())
	result := make([]int64, idx.Rank())
	for i, v := range idx.elements {
		result[i] = v - offset.elements[i]
	}
	return Index{elements: result}
}

// Mul returns idx scaled element-wise by multipliers.
func (idx Index) Mul(multipliers []int64) Index {
	idx.checkRank("Mul", len(multipliers))
	result := make([]int64, idx.Rank())
	for i, v := range idx.elements {
		result[i] = v * multipliers[i]
	}
	return Index{elements: result}
}

// Equal returns whether both indices have the same coordinates.
func (idx Index) Equal(other Index) bool {
	return slices.Equal(idx.elements, other.elements)
}

// Hash returns a structural hash of the index.
func (idx Index) Hash() uint64 {
	return xhash.Ints(xhash.New(), idx.elements).Sum64()
}

// String implements fmt.Stringer. E.g.: "[0,4]".
func (idx Index) String() string {
	parts := make([]string, len(idx.elements))
	for i, v := range idx.elements {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
