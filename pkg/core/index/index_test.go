// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package index

import (
	"testing"

	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	idx := New(1, 2, 3)
	off := New(10, -20, 30)
	assert.Equal(t, 3, idx.Rank())
	assert.Equal(t, "[1,2,3]", idx.String())

	assert.True(t, idx.Add(off).Equal(New(11, -18, 33)))
	assert.True(t, idx.Add(off).Sub(off).Equal(idx))
	assert.True(t, idx.Sub(off).Add(off).Equal(idx))
	assert.True(t, idx.Mul([]int64{2, 0, -1}).Equal(New(2, 0, -3)))

	// Operands are not modified.
	assert.Equal(t, []int64{1, 2, 3}, idx.Elements())

	assert.True(t, Zeros(2).Equal(New(0, 0)))
	assert.Equal(t, New(4, 5).Hash(), New(4, 5).Hash())
	assert.NotEqual(t, New(4, 5).Hash(), New(5, 4).Hash())

	// Arity mismatch is a contract violation.
	assert.Panics(t, func() { idx.Add(New(1)) })
	assert.Panics(t, func() { idx.Sub(New(1, 2, 3, 4)) })
	assert.Panics(t, func() { idx.Mul([]int64{1}) })
}

func TestDomain(t *testing.T) {
	d := NewDomain(New(4, 0), shapes.Make(4, 8))
	assert.Equal(t, "IndexDomain(origin=[4,0],shape=[4,8])", d.String())
	assert.True(t, d.Limit().Equal(New(8, 8)))
	assert.Equal(t, int64(32), d.NumElements())
	assert.True(t, d.Contains(New(4, 0)))
	assert.True(t, d.Contains(New(7, 7)))
	assert.False(t, d.Contains(New(8, 0)))
	assert.False(t, d.Contains(New(3, 5)))

	moved := d.Add(New(1, 2))
	assert.True(t, moved.Equal(NewDomain(New(5, 2), shapes.Make(4, 8))))
	assert.True(t, moved.Sub(New(1, 2)).Equal(d))
	assert.Equal(t, d.Hash(), moved.Sub(New(1, 2)).Hash())

	full := DomainOf(shapes.Make(8, 16))
	assert.True(t, full.Origin().Equal(New(0, 0)))

	inter, ok := full.Intersect(d)
	require.True(t, ok)
	assert.True(t, inter.Equal(d))

	_, ok = d.Intersect(NewDomain(New(0, 0), shapes.Make(4, 8)))
	assert.False(t, ok)

	assert.Panics(t, func() { NewDomain(New(0), shapes.Make(2, 2)) })
	assert.Panics(t, func() { d.Contains(New(0)) })
}
