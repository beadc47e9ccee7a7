// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package index

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shardmap/pkg/core/shapes"
)

// Domain is an axis-aligned rectangular region of an array: it covers [origin[i], origin[i]+shape[i])
// along each axis i.
//
// It is used to describe which part of the logical array is held by each shard.
type Domain struct {
	origin Index
	shape  shapes.Shape
}

// NewDomain creates a Domain. It panics if origin and shape have different ranks.
func NewDomain(origin Index, shape shapes.Shape) Domain {
	if origin.Rank() != shape.Rank() {
		exceptions.Panicf("index.NewDomain(origin=%s, shape=%s): rank mismatch", origin, shape)
	}
	return Domain{origin: origin, shape: shape}
}

// DomainOf returns the Domain covering the whole shape, with the origin at zero.
func DomainOf(shape shapes.Shape) Domain {
	return Domain{origin: Zeros(shape.Rank()), shape: shape}
}

// Origin returns the first position covered by the domain.
func (d Domain) Origin() Index { return d.origin }

// Shape returns the extent of the domain.
func (d Domain) Shape() shapes.Shape { return d.shape }

// Rank of the domain.
func (d Domain) Rank() int { return d.shape.Rank() }

// Limit returns the exclusive end position of the domain: origin + shape.
func (d Domain) Limit() Index {
	return d.origin.Add(Index{elements: d.shape.Dimensions()})
}

// NumElements returns the number of positions covered by the domain.
func (d Domain) NumElements() int64 { return d.shape.NumElements() }

// Add returns the domain translated by offset.
func (d Domain) Add(offset Index) Domain {
	return Domain{origin: d.origin.Add(offset), shape: d.shape}
}

// Sub returns the domain translated by -offset.
func (d Domain) Sub(offset Index) Domain {
	return Domain{origin: d.origin.Sub(offset), shape: d.shape}
}

// Contains returns whether the position idx falls inside the domain.
func (d Domain) Contains(idx Index) bool {
	d.origin.checkRank("Contains", idx.Rank())
	for axis, start := range d.origin.elements {
		v := idx.elements[axis]
		if v < start || v >= start+d.shape.Dim(axis) {
			return false
		}
	}
	return true
}

// Intersect returns the intersection of the two domains, and whether it is non-empty.
func (d Domain) Intersect(other Domain) (Domain, bool) {
	d.origin.checkRank("Intersect", other.Rank())
	origin := make([]int64, d.Rank())
	dims := make([]int64, d.Rank())
	nonEmpty := true
	for axis := range origin {
		start := max(d.origin.elements[axis], other.origin.elements[axis])
		end := min(d.origin.elements[axis]+d.shape.Dim(axis), other.origin.elements[axis]+other.shape.Dim(axis))
		origin[axis] = start
		if end <= start {
			nonEmpty = false
			end = start
		}
		dims[axis] = end - start
	}
	return Domain{origin: Index{elements: origin}, shape: shapes.Make(dims...)}, nonEmpty
}

// Equal returns whether both domains have the same origin and shape.
func (d Domain) Equal(other Domain) bool {
	return d.origin.Equal(other.origin) && d.shape.Equal(other.shape)
}

// Hash returns a structural hash of the domain.
func (d Domain) Hash() uint64 {
	return d.origin.Hash()*31 + d.shape.Hash()
}

// String implements fmt.Stringer.
func (d Domain) String() string {
	return fmt.Sprintf("IndexDomain(origin=%s,shape=%s)", d.origin, d.shape)
}
