// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed_test

import (
	"testing"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/distributed"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNameValid(t *testing.T) {
	for _, name := range []string{"x", "data", "model_2", "Y"} {
		assert.True(t, distributed.IsNameValid(name), name)
	}
	for _, name := range []string{"", "1x", "_x", "a-b", "é"} {
		assert.False(t, distributed.IsNameValid(name), name)
	}
}

func TestDeviceMesh(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		tests := []struct {
			name      string
			sizes     []int
			axisNames []string
			wantRank  int
			wantNum   int
			wantErr   string
		}{
			{name: "1D", sizes: []int{8}, axisNames: []string{"replica"}, wantRank: 1, wantNum: 8},
			{name: "2D", sizes: []int{2, 4}, axisNames: []string{"x", "y"}, wantRank: 2, wantNum: 8},
			{name: "3D", sizes: []int{2, 2, 2}, axisNames: []string{"x", "y", "z"}, wantRank: 3, wantNum: 8},
			{name: "single device", sizes: []int{1}, axisNames: []string{"replica"}, wantRank: 1, wantNum: 1},
			{name: "mismatched lengths", sizes: []int{2, 4}, axisNames: []string{"x"}, wantErr: "2 axes sizes but 1 axes names"},
			{name: "empty", sizes: []int{}, axisNames: []string{}, wantErr: "at least one axis"},
			{name: "invalid name", sizes: []int{4}, axisNames: []string{"1x"}, wantErr: "is not a valid identifier"},
			{name: "duplicate name", sizes: []int{2, 4}, axisNames: []string{"x", "x"}, wantErr: `axis name "x" is duplicated`},
			{name: "zero size", sizes: []int{2, 0}, axisNames: []string{"x", "y"}, wantErr: "has invalid size 0"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mesh, err := distributed.NewDeviceMesh(tt.sizes, tt.axisNames)
				if tt.wantErr != "" {
					require.Error(t, err)
					assert.Nil(t, mesh)
					assert.Contains(t, err.Error(), tt.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.wantRank, mesh.Rank())
				assert.Equal(t, tt.wantNum, mesh.NumDevices())
				assert.Equal(t, distributed.DefaultMeshName, mesh.Name())
			})
		}
	})

	t.Run("Axes", func(t *testing.T) {
		sizes := []int{2, 4}
		mesh := must.M1(distributed.NewDeviceMesh(sizes, []string{"x", "y"}))
		sizes[0] = 7
		assert.Equal(t, []int{2, 4}, mesh.AxesSizes())
		names := mesh.AxesNames()
		assert.Equal(t, []string{"x", "y"}, names)
		names[0] = "modified"
		assert.Equal(t, []string{"x", "y"}, mesh.AxesNames())

		size, err := mesh.AxisSize("y")
		require.NoError(t, err)
		assert.Equal(t, 4, size)
		_, err = mesh.AxisSize("z")
		require.ErrorContains(t, err, "not found")

		assert.Equal(t, "DeviceMesh(axesSizes={x: 2, y: 4})", mesh.String())
		mesh.SetName("grid")
		assert.Equal(t, "grid", mesh.Name())
	})

	t.Run("Coordinates", func(t *testing.T) {
		mesh := must.M1(distributed.NewDeviceMesh([]int{2, 3}, []string{"x", "y"}))
		assert.Equal(t, []int64{2, 3}, mesh.Shape().Dimensions())
		coords, err := mesh.Coordinates(4)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 1}, coords)
		coords, err = mesh.Coordinates(2)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2}, coords)
		_, err = mesh.Coordinates(6)
		require.Error(t, err)
	})

	t.Run("SetLogicalDeviceAssignment", func(t *testing.T) {
		mesh := must.M1(distributed.NewDeviceMesh([]int{4}, []string{"replica"}))
		for _, assignment := range [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 1, 3}} {
			require.NoError(t, mesh.SetLogicalDeviceAssignment(assignment...))
			assert.Equal(t, assignment, mesh.LogicalDeviceAssignment())
		}
		require.NoError(t, mesh.SetLogicalDeviceAssignment())
		assert.Nil(t, mesh.LogicalDeviceAssignment())

		tests := []struct {
			name       string
			assignment []int
			wantErr    string
		}{
			{name: "wrong number of devices", assignment: []int{0, 1, 2}, wantErr: "requires 4 devices, got 3"},
			{name: "duplicate device", assignment: []int{0, 1, 1, 3}, wantErr: "device 1 is assigned twice"},
			{name: "negative device", assignment: []int{0, 1, -1, 3}, wantErr: "got device -1"},
			{name: "device too large", assignment: []int{0, 1, 2, 8}, wantErr: "got device 8"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := mesh.SetLogicalDeviceAssignment(tt.assignment...)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		}
	})

	t.Run("DeviceList", func(t *testing.T) {
		mesh := must.M1(distributed.NewDeviceMesh([]int{2, 2}, []string{"x", "y"}))
		available := devices.NewList(must.M1(devices.NewVirtualDevices(4, 1, 0))...)

		list, err := mesh.DeviceList(available)
		require.NoError(t, err)
		assert.Same(t, available, list)

		require.NoError(t, mesh.SetLogicalDeviceAssignment(3, 1, 2, 0))
		list, err = mesh.DeviceList(available)
		require.NoError(t, err)
		assert.Equal(t, []devices.ID{3, 1, 2, 0}, list.IDs())

		_, err = mesh.DeviceList(devices.NewList(available.At(0)))
		require.Error(t, err)
	})
}
