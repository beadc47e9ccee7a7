// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"fmt"
	"slices"

	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/gomlx/shardmap/pkg/support/xhash"
	"github.com/pkg/errors"
)

// PartitionSpec describes how to cut an N-dimensional array into slices, and how to lay the slices
// on a device mesh.
//
// DimShards gives, for each array axis, the number of slices along that axis (1 means not sharded).
// The slices are numbered in row-major order over DimShards.
// MinorToMajor describes the mesh and how its devices are numbered: the devices, in the order given by
// MinorToMajor.ToDeviceList, receive consecutive slices, each one replicated on NumReplicas()
// consecutive devices.
//
// Example: "[4] to [1,0] on 2x2" has device list [0,2,1,3], so device 0 holds slice 0, device 2 holds
// slice 1, device 1 holds slice 2 and device 3 holds slice 3.
//
// A PartitionSpec is immutable. Use NewPartitionSpec to create a verified one.
type PartitionSpec struct {
	dimShards    []int64
	minorToMajor MinorToMajor
}

// MakePartitionSpec returns a PartitionSpec without verifying it. See NewPartitionSpec.
func MakePartitionSpec(dimShards []int64, minorToMajor MinorToMajor) PartitionSpec {
	return PartitionSpec{
		dimShards: slices.Clone(dimShards),
		minorToMajor: MinorToMajor{
			Permutation: slices.Clone(minorToMajor.Permutation),
			AxisSizes:   slices.Clone(minorToMajor.AxisSizes),
		},
	}
}

// NewPartitionSpec creates a PartitionSpec and verifies it can be laid out on the mesh.
func NewPartitionSpec(dimShards []int64, minorToMajor MinorToMajor) (PartitionSpec, error) {
	spec := MakePartitionSpec(dimShards, minorToMajor)
	if err := spec.Verify(); err != nil {
		return PartitionSpec{}, err
	}
	return spec, nil
}

// DimShards returns a copy of the number of shards per array axis.
func (s PartitionSpec) DimShards() []int64 { return slices.Clone(s.dimShards) }

// MinorToMajor returns a copy of the mesh description.
func (s PartitionSpec) MinorToMajor() MinorToMajor {
	return MinorToMajor{
		Permutation: slices.Clone(s.minorToMajor.Permutation),
		AxisSizes:   slices.Clone(s.minorToMajor.AxisSizes),
	}
}

// Rank of the arrays the spec applies to.
func (s PartitionSpec) Rank() int { return len(s.dimShards) }

// Verify checks that the mesh description is valid and that the sharded dimensions can be laid out
// on the mesh.
//
// The mesh axes are visited from minor to major, accumulating their capacity (number of devices).
// Whenever the accumulated capacity is divisible by the number of shards of the next sharded
// dimension, that dimension is placed and its shards are divided out. Dimensions with 1 shard are
// skipped. The spec is valid if every dimension is placed.
//
// The greedy order is part of the contract: other placement orders may accept specs rejected here.
// On failure it returns an *UnplaceableDimsError.
func (s PartitionSpec) Verify() error {
	if err := s.minorToMajor.Validate(); err != nil {
		return err
	}
	for axis, shards := range s.dimShards {
		if shards <= 0 {
			return errors.Wrapf(ErrInvalidSpec, "dim %d has non-positive number of shards %d", axis, shards)
		}
	}
	numDims := len(s.dimShards)
	dimIdx := 0
	capacity := int64(1)
	for _, meshAxis := range s.minorToMajor.Permutation {
		for dimIdx < numDims && s.dimShards[dimIdx] == 1 {
			dimIdx++
		}
		if dimIdx == numDims {
			break
		}
		capacity *= int64(s.minorToMajor.AxisSizes[meshAxis])
		for dimIdx < numDims && capacity%s.dimShards[dimIdx] == 0 {
			capacity /= s.dimShards[dimIdx]
			dimIdx++
		}
	}
	for dimIdx < numDims && s.dimShards[dimIdx] == 1 {
		dimIdx++
	}
	if dimIdx != numDims {
		unplaced := make([]int, 0, numDims-dimIdx)
		for dim := dimIdx; dim < numDims; dim++ {
			if s.dimShards[dim] != 1 {
				unplaced = append(unplaced, dim)
			}
		}
		return errors.WithStack(&UnplaceableDimsError{
			DimShards:    s.DimShards(),
			MinorToMajor: s.MinorToMajor(),
			Dims:         unplaced,
		})
	}
	return nil
}

// CanApplyTo verifies the spec, and checks that it can be used for an array of the given shape
// placed on numDevices devices.
func (s PartitionSpec) CanApplyTo(shape shapes.Shape, numDevices int) error {
	if err := s.Verify(); err != nil {
		return err
	}
	if shape.Rank() != s.Rank() {
		return errors.Wrapf(ErrRankMismatch, "requires dim shards to have the same rank as the array: "+
			"array rank is %d vs dim shards rank of %d", shape.Rank(), s.Rank())
	}
	if numDevices != s.NumDevices() {
		return errors.Wrapf(ErrInvalidSpec, "requires the same number of devices as the mesh, got %d devices vs %d in the mesh",
			numDevices, s.NumDevices())
	}
	return nil
}

// NumDevices returns the number of devices in the mesh.
func (s PartitionSpec) NumDevices() int { return s.minorToMajor.NumDevices() }

// NumShards returns the number of distinct slices, the product of DimShards.
func (s PartitionSpec) NumShards() int {
	total := 1
	for _, shards := range s.dimShards {
		total *= int(shards)
	}
	return total
}

// NumReplicas returns the number of devices holding each slice.
func (s PartitionSpec) NumReplicas() int {
	return s.NumDevices() / s.NumShards()
}

// IsFullyReplicated returns whether every device holds the whole array.
func (s PartitionSpec) IsFullyReplicated() bool {
	return s.NumShards() == 1
}

// IsEvenFor returns whether each dimension of shape is divisible by its number of shards.
func (s PartitionSpec) IsEvenFor(shape shapes.Shape) bool {
	if shape.Rank() != s.Rank() {
		return false
	}
	for axis, shards := range s.dimShards {
		if shape.Dim(axis)%shards != 0 {
			return false
		}
	}
	return true
}

// LocalShapeFromGlobalShape returns the shape of each slice of an array of the given global shape.
// Each dimension must be divisible by its number of shards.
func (s PartitionSpec) LocalShapeFromGlobalShape(global shapes.Shape) (shapes.Shape, error) {
	if global.Rank() != s.Rank() {
		return shapes.Shape{}, errors.Wrapf(ErrRankMismatch, "rank of global shape %s differs from rank of dim shards %d",
			global, s.Rank())
	}
	local := make([]int64, s.Rank())
	for axis, shards := range s.dimShards {
		dim := global.Dim(axis)
		if dim%shards != 0 {
			return shapes.Shape{}, errors.Wrapf(ErrNotDivisible,
				"global shape %s is not divisible by the number of shards in dimension %d (%d shards)",
				global, axis, shards)
		}
		local[axis] = dim / shards
	}
	return shapes.Make(local...), nil
}

// GlobalShapeFromLocalShape returns the shape of the array whose slices have the given local shape.
func (s PartitionSpec) GlobalShapeFromLocalShape(local shapes.Shape) (shapes.Shape, error) {
	if local.Rank() != s.Rank() {
		return shapes.Shape{}, errors.Wrapf(ErrRankMismatch, "rank of local shape %s differs from rank of dim shards %d",
			local, s.Rank())
	}
	global := make([]int64, s.Rank())
	for axis, shards := range s.dimShards {
		global[axis] = local.Dim(axis) * shards
	}
	return shapes.Make(global...), nil
}

// SliceAssignment returns, for each mesh device id, the index of the slice it holds.
// Slice indices are row-major over DimShards. It assumes the spec is verified.
func (s PartitionSpec) SliceAssignment() []int {
	deviceList := s.minorToMajor.ToDeviceList()
	numReplicas := s.NumReplicas()
	assignment := make([]int, len(deviceList))
	for position, deviceID := range deviceList {
		assignment[deviceID] = position / numReplicas
	}
	return assignment
}

// SliceOrigin returns, for the given slice index and slice (local) shape, the position of the slice's
// first element in the global array.
func (s PartitionSpec) SliceOrigin(slice int, local shapes.Shape) []int64 {
	origin := make([]int64, s.Rank())
	remaining := int64(slice)
	for axis := s.Rank() - 1; axis >= 0; axis-- {
		origin[axis] = (remaining % s.dimShards[axis]) * local.Dim(axis)
		remaining /= s.dimShards[axis]
	}
	return origin
}

// SliceIndices returns the per-axis shard index of the given slice: the row-major unraveling of slice
// over DimShards.
func (s PartitionSpec) SliceIndices(slice int) []int64 {
	return shapes.Make(s.dimShards...).Unravel(int64(slice))
}

// ReplicaGroups returns the groups of mesh device ids holding the same slice, one group per slice,
// in slice order. Within a group, devices are in the mesh traversal order.
func (s PartitionSpec) ReplicaGroups() [][]int {
	deviceList := s.minorToMajor.ToDeviceList()
	numReplicas := s.NumReplicas()
	groups := make([][]int, 0, s.NumShards())
	for start := 0; start < len(deviceList); start += numReplicas {
		groups = append(groups, slices.Clone(deviceList[start:start+numReplicas]))
	}
	return groups
}

// Equal returns whether both specs are the same.
func (s PartitionSpec) Equal(other PartitionSpec) bool {
	return slices.Equal(s.dimShards, other.dimShards) && s.minorToMajor.Equal(other.minorToMajor)
}

// Hash returns a process-local structural hash of the spec.
func (s PartitionSpec) Hash() uint64 {
	h := xhash.New()
	xhash.Ints(h, s.dimShards)
	xhash.Ints(h, s.minorToMajor.Permutation)
	xhash.Ints(h, s.minorToMajor.AxisSizes)
	return h.Sum64()
}

// String implements fmt.Stringer. E.g.: "2x1x3 to [1,0] on 3x2".
//
// It is meant for debugging only, there is no parser for it.
func (s PartitionSpec) String() string {
	return fmt.Sprintf("%s to %s", joinDims(s.dimShards, "x"), s.minorToMajor)
}
