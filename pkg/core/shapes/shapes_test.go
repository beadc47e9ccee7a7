// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := Make(2, 3, 4)
	assert.Equal(t, 3, s.Rank())
	assert.Equal(t, int64(24), s.NumElements())
	assert.Equal(t, int64(4), s.Dim(-1))
	assert.Equal(t, int64(2), s.Dim(0))
	assert.Equal(t, "[2,3,4]", s.String())
	assert.Panics(t, func() { s.Dim(3) })
	assert.Panics(t, func() { s.Dim(-4) })

	// Dimensions is a copy: the shape stays frozen.
	dims := s.Dimensions()
	dims[0] = 100
	assert.Equal(t, int64(2), s.Dim(0))

	// Input to Make is cloned as well.
	input := []int64{5, 6}
	s2 := Make(input...)
	input[0] = 7
	assert.Equal(t, "[5,6]", s2.String())

	assert.True(t, s.Equal(Make(2, 3, 4)))
	assert.False(t, s.Equal(Make(2, 3)))
	assert.Equal(t, s.Hash(), Make(2, 3, 4).Hash())
	assert.NotEqual(t, s.Hash(), Make(2, 4, 3).Hash())

	// Zero dimensions are legal, negative ones are not.
	assert.Equal(t, int64(0), Make(3, 0).NumElements())
	assert.Panics(t, func() { Make(3, -1) })

	// Scalars.
	scalar := Make()
	assert.True(t, scalar.IsScalar())
	assert.Equal(t, int64(1), scalar.NumElements())
	assert.Equal(t, "[]", scalar.String())
	assert.True(t, scalar.Equal(Shape{}))

	// Memory footprint.
	assert.Equal(t, uintptr(24*4), s.Memory(dtypes.Float32))
	assert.Equal(t, uintptr(24*8), s.Memory(dtypes.Int64))
}

func TestDynamicShape(t *testing.T) {
	tag := must.M1(NewBoundedDynamicTag(true, false))
	d, err := NewDynamic(Make(4, 3), tag)
	require.NoError(t, err)
	assert.True(t, d.PaddedShape().Equal(Make(4, 3)))
	assert.True(t, d.IsDynamicDim(0))
	assert.False(t, d.IsDynamicDim(1))
	assert.Panics(t, func() { d.IsDynamicDim(2) })
	assert.Equal(t, "[<=4,3]", d.String())

	d2 := must.M1(NewDynamic(Make(4, 3), must.M1(NewBoundedDynamicTag(true, false))))
	assert.True(t, d.Equal(d2))
	assert.Equal(t, d.Hash(), d2.Hash())
	d3 := must.M1(NewDynamic(Make(4, 3), must.M1(NewBoundedDynamicTag(false, true))))
	assert.False(t, d.Equal(d3))

	// Arity mismatch is rejected, never truncated or padded.
	_, err = NewDynamic(Make(4, 3, 2), tag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same number of dimensions")

	// At least one dynamic axis.
	_, err = NewBoundedDynamicTag(false, false)
	require.Error(t, err)
	_, err = NewDynamic(Make(4), BoundedDynamicTag{dynamicAxes: []bool{false}})
	require.Error(t, err)
}
