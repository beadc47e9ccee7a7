// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/shardmap/pkg/support/sets"
	"github.com/pkg/errors"
)

// MinorToMajor describes a device mesh and the order in which its axes are traversed to number
// the devices.
//
// AxisSizes gives the number of devices along each mesh axis. Permutation lists the mesh axes from
// the minor (fastest varying) to the major (slowest varying) one.
//
// The device id of a mesh position is computed with axis 0 having stride 1, axis 1 stride
// AxisSizes[0], and so on.
type MinorToMajor struct {
	Permutation []int
	AxisSizes   []int
}

// Validate checks that Permutation and AxisSizes have the same non-zero length, and that Permutation
// is a permutation of the mesh axes. It also requires the axis sizes to be positive.
func (m MinorToMajor) Validate() error {
	if len(m.Permutation) != len(m.AxisSizes) || len(m.AxisSizes) == 0 {
		return errors.Wrapf(ErrInvalidSpec, "expected same non-zero size for permutation and axis sizes, got %d vs %d",
			len(m.Permutation), len(m.AxisSizes))
	}
	seen := sets.Make[int](len(m.Permutation))
	for _, axis := range m.Permutation {
		if seen.Has(axis) {
			return errors.Wrapf(ErrInvalidSpec, "permutation %v has duplicate values", m.Permutation)
		}
		seen.Insert(axis)
		if axis < 0 || axis >= len(m.AxisSizes) {
			return errors.Wrapf(ErrInvalidSpec, "out of range axis %d to the mesh of %s", axis, m)
		}
	}
	for axis, size := range m.AxisSizes {
		if size <= 0 {
			return errors.Wrapf(ErrInvalidSpec, "mesh axis %d has non-positive size %d", axis, size)
		}
	}
	return nil
}

// NumDevices returns the number of devices in the mesh, the product of AxisSizes.
func (m MinorToMajor) NumDevices() int {
	total := 1
	for _, size := range m.AxisSizes {
		total *= size
	}
	return total
}

// ToDeviceList returns the device ids of the mesh, in traversal order: the last axis of Permutation
// varies the slowest and the first axis the fastest.
//
// The result is a permutation of [0, NumDevices()). For the identity Permutation it is the identity.
// It assumes the MinorToMajor is valid.
//
// Example: Permutation=[1,0], AxisSizes=[2,2] returns [0,2,1,3].
func (m MinorToMajor) ToDeviceList() []int {
	strides := make([]int, len(m.AxisSizes))
	stride := 1
	for axis, size := range m.AxisSizes {
		strides[axis] = stride
		stride *= size
	}

	numDevices := m.NumDevices()
	devices := make([]int, 0, numDevices)
	// positions[i] is the current position along the mesh axis m.Permutation[i].
	positions := make([]int, len(m.Permutation))
	id := 0
	for range numDevices {
		devices = append(devices, id)
		// Advance the odometer, starting from the minor axis.
		for i, axis := range m.Permutation {
			positions[i]++
			id += strides[axis]
			if positions[i] < m.AxisSizes[axis] {
				break
			}
			id -= positions[i] * strides[axis]
			positions[i] = 0
		}
	}
	return devices
}

// Equal returns whether both descriptions are the same.
func (m MinorToMajor) Equal(other MinorToMajor) bool {
	return slices.Equal(m.Permutation, other.Permutation) && slices.Equal(m.AxisSizes, other.AxisSizes)
}

// String implements fmt.Stringer. E.g.: "[1,0] on 3x2".
func (m MinorToMajor) String() string {
	perm := make([]string, len(m.Permutation))
	for i, axis := range m.Permutation {
		perm[i] = strconv.Itoa(axis)
	}
	return fmt.Sprintf("[%s] on %s", strings.Join(perm, ","), joinDims(m.AxisSizes, "x"))
}

func joinDims[T ~int | ~int64](values []T, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, sep)
}
