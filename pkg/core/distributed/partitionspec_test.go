// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"slices"
	"testing"

	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorToMajor(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			m       MinorToMajor
			wantErr string
		}{
			{"valid", MinorToMajor{[]int{1, 0}, []int{3, 2}}, ""},
			{"length mismatch", MinorToMajor{[]int{0}, []int{3, 2}}, "same non-zero size"},
			{"empty", MinorToMajor{}, "same non-zero size"},
			{"duplicates", MinorToMajor{[]int{0, 0}, []int{3, 2}}, "duplicate values"},
			{"out of range", MinorToMajor{[]int{0, 2}, []int{3, 2}}, "out of range axis 2"},
			{"zero size", MinorToMajor{[]int{0, 1}, []int{3, 0}}, "non-positive size"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.m.Validate()
				if tt.wantErr == "" {
					require.NoError(t, err)
					return
				}
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSpec)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})

	t.Run("ToDeviceList", func(t *testing.T) {
		tests := []struct {
			permutation, axisSizes []int
			want                   []int
		}{
			{[]int{0}, []int{4}, []int{0, 1, 2, 3}},
			{[]int{0, 1}, []int{2, 2}, []int{0, 1, 2, 3}},
			{[]int{1, 0}, []int{2, 2}, []int{0, 2, 1, 3}},
			{[]int{1, 0}, []int{2, 3}, []int{0, 2, 4, 1, 3, 5}},
			{[]int{0, 1, 2}, []int{2, 1, 3}, []int{0, 1, 2, 3, 4, 5}},
			{[]int{2, 0, 1}, []int{2, 2, 2}, []int{0, 4, 1, 5, 2, 6, 3, 7}},
		}
		for _, tt := range tests {
			m := MinorToMajor{Permutation: tt.permutation, AxisSizes: tt.axisSizes}
			require.NoError(t, m.Validate())
			assert.Equal(t, tt.want, m.ToDeviceList(), "ToDeviceList(%s)", m)
		}
	})

	t.Run("ToDeviceListIsPermutation", func(t *testing.T) {
		axisSizes := []int{2, 3, 4}
		for _, perm := range [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}} {
			m := MinorToMajor{Permutation: perm, AxisSizes: axisSizes}
			got := m.ToDeviceList()
			require.Len(t, got, m.NumDevices())
			sorted := slices.Sorted(slices.Values(got))
			for i, id := range sorted {
				require.Equal(t, i, id, "ToDeviceList(%s)=%v is not a permutation", m, got)
			}
		}
	})

	m := MinorToMajor{Permutation: []int{1, 0}, AxisSizes: []int{3, 2}}
	assert.Equal(t, "[1,0] on 3x2", m.String())
	assert.Equal(t, 6, m.NumDevices())
	assert.True(t, m.Equal(MinorToMajor{Permutation: []int{1, 0}, AxisSizes: []int{3, 2}}))
	assert.False(t, m.Equal(MinorToMajor{Permutation: []int{0, 1}, AxisSizes: []int{3, 2}}))
}

func TestPartitionSpec_Verify(t *testing.T) {
	tests := []struct {
		name         string
		dimShards    []int64
		permutation  []int
		axisSizes    []int
		wantUnplaced []int
	}{
		{"example", []int64{2, 1, 3}, []int{1, 0}, []int{3, 2}, nil},
		{"insufficient mesh", []int64{2, 2}, []int{0}, []int{2}, []int{1}},
		{"replicated", []int64{1, 1}, []int{0}, []int{4}, nil},
		{"partially replicated", []int64{2}, []int{0, 1}, []int{2, 3}, nil},
		{"combined axes", []int64{6}, []int{0, 1}, []int{2, 3}, nil},
		{"not divisible", []int64{4}, []int{0, 1}, []int{2, 3}, []int{0}},
		{"trailing unsharded", []int64{4, 1, 1}, []int{0}, []int{4}, nil},
		{"unplaced with unsharded in between", []int64{2, 1, 2}, []int{0}, []int{2}, []int{2}},
		{"greedy order", []int64{2, 3}, []int{0, 1}, []int{3, 2}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := MakePartitionSpec(tt.dimShards, MinorToMajor{Permutation: tt.permutation, AxisSizes: tt.axisSizes})
			err := spec.Verify()
			if tt.wantUnplaced == nil {
				require.NoError(t, err, "Verify(%s)", spec)
				return
			}
			require.Error(t, err, "Verify(%s)", spec)
			assert.ErrorIs(t, err, ErrInvalidSpec)
			var unplaceable *UnplaceableDimsError
			require.True(t, errors.As(err, &unplaceable))
			assert.Equal(t, tt.wantUnplaced, unplaceable.Dims)
			assert.Equal(t, tt.dimShards, unplaceable.DimShards)
		})
	}

	_, err := NewPartitionSpec([]int64{0}, MinorToMajor{Permutation: []int{0}, AxisSizes: []int{2}})
	assert.ErrorIs(t, err, ErrInvalidSpec)
	_, err = NewPartitionSpec([]int64{2}, MinorToMajor{Permutation: []int{1}, AxisSizes: []int{2}})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestPartitionSpec(t *testing.T) {
	spec, err := NewPartitionSpec([]int64{2, 1, 3}, MinorToMajor{Permutation: []int{1, 0}, AxisSizes: []int{3, 2}})
	require.NoError(t, err)
	assert.Equal(t, "2x1x3 to [1,0] on 3x2", spec.String())
	assert.Equal(t, 3, spec.Rank())
	assert.Equal(t, 6, spec.NumDevices())
	assert.Equal(t, 6, spec.NumShards())
	assert.Equal(t, 1, spec.NumReplicas())
	assert.False(t, spec.IsFullyReplicated())

	t.Run("ShapeConversions", func(t *testing.T) {
		global := shapes.Make(100, 100, 60)
		local, err := spec.LocalShapeFromGlobalShape(global)
		require.NoError(t, err)
		assert.Equal(t, []int64{50, 100, 20}, local.Dimensions())
		back, err := spec.GlobalShapeFromLocalShape(local)
		require.NoError(t, err)
		assert.True(t, back.Equal(global))
		assert.True(t, spec.IsEvenFor(global))

		_, err = spec.LocalShapeFromGlobalShape(shapes.Make(100, 100, 61))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotDivisible)
		assert.Contains(t, err.Error(), "dimension 2")
		assert.False(t, spec.IsEvenFor(shapes.Make(100, 100, 61)))

		_, err = spec.LocalShapeFromGlobalShape(shapes.Make(100, 100))
		assert.ErrorIs(t, err, ErrRankMismatch)
		_, err = spec.GlobalShapeFromLocalShape(shapes.Make(100))
		assert.ErrorIs(t, err, ErrRankMismatch)
	})

	t.Run("CanApplyTo", func(t *testing.T) {
		require.NoError(t, spec.CanApplyTo(shapes.Make(4, 5, 6), 6))
		assert.ErrorIs(t, spec.CanApplyTo(shapes.Make(4, 6), 6), ErrRankMismatch)
		assert.ErrorIs(t, spec.CanApplyTo(shapes.Make(4, 5, 6), 8), ErrInvalidSpec)
	})

	t.Run("Equal", func(t *testing.T) {
		same := MakePartitionSpec([]int64{2, 1, 3}, MinorToMajor{Permutation: []int{1, 0}, AxisSizes: []int{3, 2}})
		other := MakePartitionSpec([]int64{2, 1, 3}, MinorToMajor{Permutation: []int{0, 1}, AxisSizes: []int{3, 2}})
		assert.True(t, spec.Equal(same))
		assert.Equal(t, spec.Hash(), same.Hash())
		assert.False(t, spec.Equal(other))
		assert.NotEqual(t, spec.Hash(), other.Hash())
	})

	t.Run("Immutable", func(t *testing.T) {
		dimShards := []int64{2}
		m := MinorToMajor{Permutation: []int{0}, AxisSizes: []int{2}}
		s := MakePartitionSpec(dimShards, m)
		dimShards[0] = 5
		m.AxisSizes[0] = 7
		assert.Equal(t, []int64{2}, s.DimShards())
		assert.Equal(t, []int{2}, s.MinorToMajor().AxisSizes)
		s.DimShards()[0] = 3
		assert.Equal(t, []int64{2}, s.DimShards())
	})
}

func TestPartitionSpec_SliceAssignment(t *testing.T) {
	tests := []struct {
		name          string
		dimShards     []int64
		permutation   []int
		axisSizes     []int
		wantSlices    []int
		wantGroups    [][]int
		wantReplicas  int
		wantFullyRepl bool
	}{
		{
			name:         "transposed mesh",
			dimShards:    []int64{4},
			permutation:  []int{1, 0},
			axisSizes:    []int{2, 2},
			wantSlices:   []int{0, 2, 1, 3},
			wantGroups:   [][]int{{0}, {2}, {1}, {3}},
			wantReplicas: 1,
		},
		{
			name:         "replicated on minor axis",
			dimShards:    []int64{2, 1},
			permutation:  []int{0, 1},
			axisSizes:    []int{3, 2},
			wantSlices:   []int{0, 0, 0, 1, 1, 1},
			wantGroups:   [][]int{{0, 1, 2}, {3, 4, 5}},
			wantReplicas: 3,
		},
		{
			name:          "fully replicated",
			dimShards:     []int64{1, 1},
			permutation:   []int{0},
			axisSizes:     []int{3},
			wantSlices:    []int{0, 0, 0},
			wantGroups:    [][]int{{0, 1, 2}},
			wantReplicas:  3,
			wantFullyRepl: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewPartitionSpec(tt.dimShards, MinorToMajor{Permutation: tt.permutation, AxisSizes: tt.axisSizes})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSlices, spec.SliceAssignment())
			assert.Equal(t, tt.wantGroups, spec.ReplicaGroups())
			assert.Equal(t, tt.wantReplicas, spec.NumReplicas())
			assert.Equal(t, tt.wantFullyRepl, spec.IsFullyReplicated())
		})
	}

	spec, err := NewPartitionSpec([]int64{2, 4}, MinorToMajor{Permutation: []int{0}, AxisSizes: []int{8}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, spec.SliceIndices(5))
	assert.Equal(t, []int64{4, 4}, spec.SliceOrigin(5, shapes.Make(4, 4)))
	assert.Equal(t, []int64{0, 12}, spec.SliceOrigin(3, shapes.Make(4, 4)))
}
