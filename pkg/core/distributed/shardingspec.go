// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"slices"
	"strings"

	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/gomlx/shardmap/pkg/support/sets"
	"github.com/gomlx/shardmap/pkg/support/xslices"
	"github.com/pkg/errors"
)

// ShardingSpec describes, for each axis of an array, the named DeviceMesh axes it is sharded over.
//
// Array axes not listed (beyond len(Axes)) are replicated, as are axes with an empty AxisSpec. When an
// array axis is sharded over more than one mesh axis, the first one listed is the major one.
//
// Example:
//
//	mesh, _ := NewDeviceMesh([]int{2, 4}, []string{"data", "model"})
//	batchSharded, _ := BuildSpec(mesh).S("data").Done()
//	weights, _ := BuildSpec(mesh).R().S("data", "model").Done()
//
// Use ToPartitionSpec to compute shard shapes and index domains with the partition package.
type ShardingSpec struct {
	Mesh *DeviceMesh
	Axes []AxisSpec
}

// AxisSpec lists the mesh axes an array axis is sharded over, major first. Empty means replicated.
type AxisSpec []string

// ReplicatedAxis is the AxisSpec of a replicated array axis.
var ReplicatedAxis = AxisSpec(nil)

// NewShardingSpec creates and validates a ShardingSpec with one AxisSpec per leading array axis.
func NewShardingSpec(mesh *DeviceMesh, axisSpec ...AxisSpec) (*ShardingSpec, error) {
	s := &ShardingSpec{Mesh: mesh, Axes: axisSpec}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewReplicatedShardingSpec creates a ShardingSpec where every array axis is replicated.
func NewReplicatedShardingSpec(mesh *DeviceMesh) *ShardingSpec {
	return &ShardingSpec{Mesh: mesh}
}

// Validate checks that every mesh axis referenced exists, and that none is used twice.
func (s *ShardingSpec) Validate() error {
	if s.Mesh == nil {
		return errors.Wrap(ErrInvalidSpec, "ShardingSpec without mesh")
	}
	meshAxesUsed := sets.Make[string]()
	for axis, meshAxes := range s.Axes {
		for _, name := range meshAxes {
			if _, ok := s.Mesh.nameToAxis[name]; !ok {
				return errors.Wrapf(ErrInvalidSpec, "ShardingSpec axis #%d refers to unknown mesh axis %q", axis, name)
			}
			if meshAxesUsed.Has(name) {
				return errors.Wrapf(ErrInvalidSpec, "mesh axis %q used more than once in ShardingSpec", name)
			}
			meshAxesUsed.Insert(name)
		}
	}
	return nil
}

// Rank returns the number of array axes explicitly described.
func (s *ShardingSpec) Rank() int {
	return len(s.Axes)
}

// IsReplicated returns whether no array axis is sharded.
func (s *ShardingSpec) IsReplicated() bool {
	return !slices.ContainsFunc(s.Axes, func(meshAxes AxisSpec) bool { return len(meshAxes) > 0 })
}

// String implements fmt.Stringer.
func (s *ShardingSpec) String() string {
	if s == nil {
		return "ShardingSpec<nil>"
	}
	axes := xslices.Map(s.Axes, func(meshAxes AxisSpec) string {
		if len(meshAxes) == 0 {
			return "R"
		}
		return "S(" + strings.Join(meshAxes, ",") + ")"
	})
	return "ShardingSpec{mesh=" + s.Mesh.name + ", axes=[" + strings.Join(axes, ", ") + "]}"
}

// SpecBuilder builds a ShardingSpec one array axis at a time.
type SpecBuilder struct {
	spec *ShardingSpec
}

// BuildSpec starts building a ShardingSpec over mesh.
//
// Example:
//
//	spec, err := distributed.BuildSpec(mesh).R().S("model").Done()
func BuildSpec(mesh *DeviceMesh) *SpecBuilder {
	return &SpecBuilder{spec: &ShardingSpec{Mesh: mesh}}
}

// R appends a replicated array axis.
func (b *SpecBuilder) R() *SpecBuilder {
	b.spec.Axes = append(b.spec.Axes, ReplicatedAxis)
	return b
}

// S appends an array axis sharded over meshAxes, major first.
func (b *SpecBuilder) S(meshAxes ...string) *SpecBuilder {
	b.spec.Axes = append(b.spec.Axes, meshAxes)
	return b
}

// Done validates and returns the ShardingSpec.
func (b *SpecBuilder) Done() (*ShardingSpec, error) {
	if err := b.spec.Validate(); err != nil {
		return nil, err
	}
	return b.spec, nil
}

// NumDevicesShardingAxis returns the number of shards of the given array axis: the product of the sizes of
// its mesh axes, or 1 if it is replicated.
func (s *ShardingSpec) NumDevicesShardingAxis(axis int) int {
	if axis >= len(s.Axes) {
		return 1
	}
	size := 1
	for _, name := range s.Axes[axis] {
		size *= s.Mesh.axes[s.Mesh.nameToAxis[name]].size
	}
	return size
}

// LogicalShapeForShard returns the global shape of an array whose shards have shardShape.
// It fails with ErrRankMismatch if the spec describes more axes than shardShape has.
func (s *ShardingSpec) LogicalShapeForShard(shardShape shapes.Shape) (shapes.Shape, error) {
	if s == nil {
		return shardShape, nil
	}
	if len(s.Axes) > shardShape.Rank() {
		return shapes.Shape{}, errors.Wrapf(ErrRankMismatch, "%s has more axes than the shard shape %s", s, shardShape)
	}
	dims := shardShape.Dimensions()
	for axis := range s.Axes {
		dims[axis] *= int64(s.NumDevicesShardingAxis(axis))
	}
	return shapes.Make(dims...), nil
}

// ShardShape returns the shape of each shard of an array of the given global shape.
//
// It fails with ErrRankMismatch if the spec describes more axes than logicalShape has, and with
// ErrNotDivisible if some axis is not divisible by its number of shards.
func (s *ShardingSpec) ShardShape(logicalShape shapes.Shape) (shapes.Shape, error) {
	if s == nil {
		return logicalShape, nil
	}
	if len(s.Axes) > logicalShape.Rank() {
		return shapes.Shape{}, errors.Wrapf(ErrRankMismatch, "%s has more axes than the logical shape %s", s, logicalShape)
	}
	dims := logicalShape.Dimensions()
	for axis, dim := range dims {
		numShards := int64(s.NumDevicesShardingAxis(axis))
		if dim%numShards != 0 {
			return shapes.Shape{}, errors.Wrapf(ErrNotDivisible, "axis %d of logical shape %s is not divisible by %d shards (%s)",
				axis, logicalShape, numShards, s)
		}
		dims[axis] = dim / numShards
	}
	return shapes.Make(dims...), nil
}

// ToPartitionSpec converts the ShardingSpec to a verified PartitionSpec, for a tensor of the given rank.
//
// The mesh axis i corresponds to the PartitionSpec mesh axis Rank()-1-i, so the mesh device ids of the
// PartitionSpec match the row-major numbering of the DeviceMesh positions: use DeviceMesh.DeviceList to get
// the devices in that order.
//
// The traversal order, from minor to major, first lists the mesh axes not used by any tensor axis (the
// replicated ones), and then the mesh axes of each tensor axis, from the last tensor axis to the first.
func (s *ShardingSpec) ToPartitionSpec(rank int) (PartitionSpec, error) {
	if s == nil {
		return PartitionSpec{}, errors.Wrap(ErrInvalidSpec, "nil ShardingSpec")
	}
	if err := s.Validate(); err != nil {
		return PartitionSpec{}, err
	}
	if len(s.Axes) > rank {
		return PartitionSpec{}, errors.Wrapf(ErrRankMismatch, "%s has more axes than the tensor rank %d", s, rank)
	}
	meshRank := s.Mesh.Rank()
	toSpecAxis := func(meshAxis int) int { return meshRank - 1 - meshAxis }

	axisSizes := make([]int, meshRank)
	for meshAxis, axis := range s.Mesh.axes {
		axisSizes[toSpecAxis(meshAxis)] = axis.size
	}

	dimShards := make([]int64, rank)
	used := make([]bool, meshRank)
	for axis := range dimShards {
		dimShards[axis] = int64(s.NumDevicesShardingAxis(axis))
		if axis < len(s.Axes) {
			for _, name := range s.Axes[axis] {
				used[s.Mesh.nameToAxis[name]] = true
			}
		}
	}

	permutation := make([]int, 0, meshRank)
	for meshAxis := meshRank - 1; meshAxis >= 0; meshAxis-- {
		if !used[meshAxis] {
			permutation = append(permutation, toSpecAxis(meshAxis))
		}
	}
	for axis := len(s.Axes) - 1; axis >= 0; axis-- {
		meshAxes := slices.Clone(s.Axes[axis])
		slices.Reverse(meshAxes)
		for _, name := range meshAxes {
			permutation = append(permutation, toSpecAxis(s.Mesh.nameToAxis[name]))
		}
	}
	return NewPartitionSpec(dimShards, MinorToMajor{Permutation: permutation, AxisSizes: axisSizes})
}
