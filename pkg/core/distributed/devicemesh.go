// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package distributed describes how arrays are laid out over device meshes.
//
// There are two complementary descriptions:
//
//   - PartitionSpec: a compact, positional description (number of shards per array axis, plus a mesh
//     traversal order). It is what the partition package uses to compute shard shapes and index domains.
//   - DeviceMesh + ShardingSpec: a named, JAX-style description, where each array axis lists the named mesh
//     axes it is sharded over. ShardingSpec.ToPartitionSpec converts it to a PartitionSpec.
package distributed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/gomlx/shardmap/pkg/support/sets"
	"github.com/gomlx/shardmap/pkg/support/xslices"
	"github.com/pkg/errors"
)

// DeviceMesh defines the logical topology of a set of devices: a grid with named axes.
//
// Mesh positions are numbered in row-major order: the last axis varies the fastest.
type DeviceMesh struct {
	name       string
	axes       []meshAxis
	nameToAxis map[string]int
	numDevices int

	// assignment maps mesh positions to positions in the device list given to DeviceList.
	// nil means the identity.
	assignment []int
}

type meshAxis struct {
	name string
	size int
}

// DefaultMeshName is the name given to meshes created by NewDeviceMesh.
const DefaultMeshName = "mesh"

// IsNameValid checks whether name is a valid mesh axis name: an ASCII letter followed by ASCII letters,
// digits or underscores.
func IsNameValid(name string) bool {
	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && (i == 0 || (!isDigit && r != '_')) {
			return false
		}
	}
	return name != ""
}

// NewDeviceMesh creates a mesh with one axis per entry of axesSizes, named by the corresponding entry of
// axesNames.
//
// Its name is DefaultMeshName, since usually there is only one mesh.
func NewDeviceMesh(axesSizes []int, axesNames []string) (*DeviceMesh, error) {
	if len(axesSizes) != len(axesNames) {
		return nil, errors.Errorf("NewDeviceMesh: %d axes sizes but %d axes names", len(axesSizes), len(axesNames))
	}
	if len(axesSizes) == 0 {
		return nil, errors.New("NewDeviceMesh: a mesh needs at least one axis")
	}
	m := &DeviceMesh{
		name:       DefaultMeshName,
		axes:       make([]meshAxis, len(axesSizes)),
		nameToAxis: make(map[string]int, len(axesSizes)),
		numDevices: 1,
	}
	for i, name := range axesNames {
		switch {
		case !IsNameValid(name):
			return nil, errors.Errorf("NewDeviceMesh: axis #%d name %q is not a valid identifier", i, name)
		case axesSizes[i] <= 0:
			return nil, errors.Errorf("NewDeviceMesh: axis %q has invalid size %d", name, axesSizes[i])
		}
		if _, found := m.nameToAxis[name]; found {
			return nil, errors.Errorf("NewDeviceMesh: axis name %q is duplicated", name)
		}
		m.axes[i] = meshAxis{name: name, size: axesSizes[i]}
		m.nameToAxis[name] = i
		m.numDevices *= axesSizes[i]
	}
	return m, nil
}

// SetName of the mesh.
func (m *DeviceMesh) SetName(name string) {
	m.name = name
}

// Name returns the mesh name.
func (m *DeviceMesh) Name() string {
	return m.name
}

// NumDevices returns the total number of devices in the mesh.
func (m *DeviceMesh) NumDevices() int {
	return m.numDevices
}

// Rank returns the number of axes in the mesh.
func (m *DeviceMesh) Rank() int {
	return len(m.axes)
}

// AxesNames returns the names of the mesh axes.
func (m *DeviceMesh) AxesNames() []string {
	return xslices.Map(m.axes, func(a meshAxis) string { return a.name })
}

// AxesSizes returns the number of devices along each mesh axis.
func (m *DeviceMesh) AxesSizes() []int {
	return xslices.Map(m.axes, func(a meshAxis) int { return a.size })
}

// AxisSize returns the number of devices along the given mesh axis.
func (m *DeviceMesh) AxisSize(axisName string) (int, error) {
	idx, found := m.nameToAxis[axisName]
	if !found {
		return 0, errors.Errorf("mesh axis %q not found in %s", axisName, m)
	}
	return m.axes[idx].size, nil
}

// Shape returns the mesh as a shape, one dimension per mesh axis.
func (m *DeviceMesh) Shape() shapes.Shape {
	dims := make([]int64, len(m.axes))
	for i, axis := range m.axes {
		dims[i] = int64(axis.size)
	}
	return shapes.Make(dims...)
}

// Coordinates returns the coordinates in the mesh of the given row-major mesh position.
func (m *DeviceMesh) Coordinates(position int) ([]int, error) {
	if position < 0 || position >= m.numDevices {
		return nil, errors.Errorf("mesh position %d out of range for %s", position, m)
	}
	return xslices.Map(m.Shape().Unravel(int64(position)), func(c int64) int { return int(c) }), nil
}

// String implements the fmt.Stringer interface.
func (m *DeviceMesh) String() string {
	parts := xslices.Map(m.axes, func(a meshAxis) string { return fmt.Sprintf("%s: %d", a.name, a.size) })
	return "DeviceMesh(axesSizes={" + strings.Join(parts, ", ") + "})"
}

// SetLogicalDeviceAssignment sets which device of the list given to DeviceList is placed at each mesh
// position (row-major): it must be a permutation of 0...NumDevices()-1.
//
// Calling it with no devices resets to the identity assignment.
func (m *DeviceMesh) SetLogicalDeviceAssignment(assignment ...int) error {
	if len(assignment) == 0 {
		m.assignment = nil
		return nil
	}
	if len(assignment) != m.numDevices {
		return errors.Errorf("SetLogicalDeviceAssignment: %s requires %d devices, got %d", m, m.numDevices, len(assignment))
	}
	seen := sets.Make[int](m.numDevices)
	for _, device := range assignment {
		if device < 0 || device >= m.numDevices {
			return errors.Errorf("SetLogicalDeviceAssignment: devices must be in the range [0, %d), got device %d",
				m.numDevices, device)
		}
		if seen.Has(device) {
			return errors.Errorf("SetLogicalDeviceAssignment: device %d is assigned twice", device)
		}
		seen.Insert(device)
	}
	m.assignment = slices.Clone(assignment)
	return nil
}

// LogicalDeviceAssignment returns the device assigned to each mesh position, or nil if none was set.
func (m *DeviceMesh) LogicalDeviceAssignment() []int {
	return slices.Clone(m.assignment)
}

// DeviceList returns the devices of the mesh ordered by mesh position (row-major), picking them from
// available according to the logical device assignment.
//
// The position of a device in the returned list is the mesh device id used by a PartitionSpec
// created with ShardingSpec.ToPartitionSpec.
func (m *DeviceMesh) DeviceList(available *devices.List) (*devices.List, error) {
	if available.Size() != m.numDevices {
		return nil, errors.Errorf("DeviceList: %s requires %d devices, got %d", m, m.numDevices, available.Size())
	}
	if m.assignment == nil {
		return available, nil
	}
	ordered := make([]devices.Device, m.numDevices)
	for position, device := range m.assignment {
		ordered[position] = available.At(device)
	}
	return devices.NewList(ordered...), nil
}
