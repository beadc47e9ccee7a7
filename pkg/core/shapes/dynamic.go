// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shardmap/pkg/support/xhash"
	"github.com/pkg/errors"
)

// BoundedDynamicTag marks which axes of a DynamicShape are dynamic: for those axes the
// shape's dimension is only an upper bound.
type BoundedDynamicTag struct {
	dynamicAxes []bool
}

// NewBoundedDynamicTag creates a tag with one flag per axis. At least one axis must be dynamic.
func NewBoundedDynamicTag(dynamicAxes ...bool) (BoundedDynamicTag, error) {
	if !slices.Contains(dynamicAxes, true) {
		return BoundedDynamicTag{}, errors.Errorf(
			"BoundedDynamicTag%v: at least one axis needs to be dynamically sized", dynamicAxes)
	}
	return BoundedDynamicTag{dynamicAxes: slices.Clone(dynamicAxes)}, nil
}

// Rank returns the number of axes described by the tag.
func (t BoundedDynamicTag) Rank() int { return len(t.dynamicAxes) }

// DynamicAxes returns a copy of the per-axis flags.
func (t BoundedDynamicTag) DynamicAxes() []bool { return slices.Clone(t.dynamicAxes) }

// Equal returns whether both tags flag the same axes.
func (t BoundedDynamicTag) Equal(t2 BoundedDynamicTag) bool {
	return slices.Equal(t.dynamicAxes, t2.dynamicAxes)
}

// DynamicShape is a Shape with some axes marked as bounded-dynamic.
//
// It can only be created with NewDynamic, which validates the tag against the shape.
type DynamicShape struct {
	shape Shape
	tag   BoundedDynamicTag
}

// NewDynamic creates a DynamicShape. It returns an error if the tag doesn't have the same rank as the
// shape, or if the tag has no dynamic axis.
func NewDynamic(shape Shape, tag BoundedDynamicTag) (DynamicShape, error) {
	if tag.Rank() != shape.Rank() {
		return DynamicShape{}, errors.Errorf(
			"shape %s and dynamic tag must have the same number of dimensions, got %d and %d",
			shape, shape.Rank(), tag.Rank())
	}
	if !slices.Contains(tag.dynamicAxes, true) {
		return DynamicShape{}, errors.Errorf("dynamic shape %s has no dynamic axis", shape)
	}
	return DynamicShape{shape: shape, tag: tag}, nil
}

// PaddedShape returns the upper-bound shape, that is, the shape padded to the bounds of the dynamic axes.
func (d DynamicShape) PaddedShape() Shape { return d.shape }

// Tag returns the dynamic tag of the shape.
func (d DynamicShape) Tag() BoundedDynamicTag { return d.tag }

// Rank of the shape.
func (d DynamicShape) Rank() int { return d.shape.Rank() }

// IsDynamicDim returns whether the given axis is dynamic. It panics for an out-of-bound axis.
func (d DynamicShape) IsDynamicDim(axis int) bool {
	if axis < 0 || axis >= d.Rank() {
		exceptions.Panicf("DynamicShape.IsDynamicDim(%d) out-of-bounds for rank %d", axis, d.Rank())
	}
	return d.tag.dynamicAxes[axis]
}

// Equal compares bounds and tags.
func (d DynamicShape) Equal(d2 DynamicShape) bool {
	return d.shape.Equal(d2.shape) && d.tag.Equal(d2.tag)
}

// Hash returns a structural hash of the shape and its tag.
func (d DynamicShape) Hash() uint64 {
	h := xhash.Ints(xhash.New(), d.shape.dimensions)
	for _, dynamic := range d.tag.dynamicAxes {
		h.Bool(dynamic)
	}
	return h.Sum64()
}

// String implements fmt.Stringer. Dynamic axes are prefixed with "<=", e.g.: "[<=4,3]".
func (d DynamicShape) String() string {
	parts := make([]string, d.Rank())
	for axis, dim := range d.shape.dimensions {
		if d.tag.dynamicAxes[axis] {
			parts[axis] = "<=" + strconv.FormatInt(dim, 10)
		} else {
			parts[axis] = strconv.FormatInt(dim, 10)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}
