// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIota(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Iota(3, 3))
	assert.Equal(t, []float64{0.5, 1.5}, Iota(0.5, 2))
	assert.Empty(t, Iota(int64(1), 0))
}

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
}

func TestSliceFlag(t *testing.T) {
	f := &sliceFlag[int]{parsedSlice: []int{1}, parserFn: strconv.Atoi}
	assert.Equal(t, "1", f.String())
	require.NoError(t, f.Set("2, 3,4"))
	assert.Equal(t, []int{2, 3, 4}, f.parsedSlice)
	assert.Equal(t, "2,3,4", f.String())
	require.Error(t, f.Set("5,x"))
	assert.Equal(t, []int{2, 3, 4}, f.parsedSlice)
	require.NoError(t, f.Set(""))
	assert.Empty(t, f.parsedSlice)
}
