// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"fmt"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/distributed"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// SpecDerived is a Partitioning computed from a distributed.PartitionSpec.
//
// The device at position i of Devices() is the mesh device id i of the spec.
type SpecDerived struct {
	base
	spec distributed.PartitionSpec
	hash lazyHash
}

var _ Partitioning = (*SpecDerived)(nil)

// NewSpecDerived creates a SpecDerived partitioning. The spec is verified, and its mesh must have as many
// devices as devs.
func NewSpecDerived(devs *devices.List, memoryKind devices.MemoryKind, spec distributed.PartitionSpec) (*SpecDerived, error) {
	if err := spec.Verify(); err != nil {
		return nil, err
	}
	if spec.NumDevices() != devs.Size() {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewSpecDerived: spec %s requires %d devices, got %d",
			spec, spec.NumDevices(), devs.Size())
	}
	return &SpecDerived{
		base: newBase(devs, memoryKind, spec.IsFullyReplicated()),
		spec: spec,
	}, nil
}

// NewFromShardingSpec creates a SpecDerived partitioning for arrays of the given rank sharded according to
// spec. The devices, taken from available, are ordered by the logical device assignment of the mesh.
func NewFromShardingSpec(available *devices.List, memoryKind devices.MemoryKind, spec *distributed.ShardingSpec,
	rank int) (*SpecDerived, error) {
	partitionSpec, err := spec.ToPartitionSpec(rank)
	if err != nil {
		return nil, err
	}
	devs, err := spec.Mesh.DeviceList(available)
	if err != nil {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewFromShardingSpec: %v", err)
	}
	return NewSpecDerived(devs, memoryKind, partitionSpec)
}

// Spec returns the PartitionSpec of the partitioning.
func (p *SpecDerived) Spec() distributed.PartitionSpec { return p.spec }

// Kind implements Partitioning.
func (p *SpecDerived) Kind() Kind { return KindSpecDerived }

// ShardShape implements Partitioning. Each dimension of shape must be divisible by its number of shards.
func (p *SpecDerived) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	return p.spec.LocalShapeFromGlobalShape(shape)
}

// HasSamePartitioning implements Partitioning.
func (p *SpecDerived) HasSamePartitioning(other Partitioning) bool {
	return hasSamePartitioning(p, other)
}

// WithDeviceAssignment implements Partitioning.
func (p *SpecDerived) WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error) {
	newDevices, newMemoryKind, err := p.reassign(devs, memoryKind)
	if err != nil {
		return nil, err
	}
	return NewSpecDerived(newDevices, newMemoryKind, p.spec)
}

func (p *SpecDerived) checkRank(shape shapes.Shape) error {
	if shape.Rank() != p.spec.Rank() {
		return errors.Wrapf(ErrShapeMismatch, "%s requires shapes of rank %d, got %s", p, p.spec.Rank(), shape)
	}
	return nil
}

// Disassemble implements Partitioning.
//
// If every dimension is divisible by its number of shards, all shards have the same shape. Otherwise,
// shards have ceil(dim/shards) elements along each axis, except the last ones that may be smaller.
func (p *SpecDerived) Disassemble(shape shapes.Shape, semantics ShardSemantics) ([]Shard, error) {
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	if p.isFullyReplicated || p.spec.IsEvenFor(shape) {
		local, err := p.spec.LocalShapeFromGlobalShape(shape)
		if err != nil {
			return nil, err
		}
		return p.singleDeviceShards(local, semantics), nil
	}
	return p.shardsFromDomains(p.unevenDomains(shape), semantics), nil
}

// DisassembleDynamic implements Partitioning. It always fails with ErrUnsupported.
func (p *SpecDerived) DisassembleDynamic(shape shapes.DynamicShape, _ ShardSemantics) ([]DynamicShard, error) {
	return nil, errors.Wrapf(ErrUnsupported, "%s can only disassemble static shapes, got dynamic shape %s", p, shape)
}

// IndexDomains implements Partitioning.
func (p *SpecDerived) IndexDomains(shape shapes.Shape, semantics ShardSemantics) ([]index.Domain, error) {
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	if p.isFullyReplicated {
		return p.replicatedDomains(shape, semantics), nil
	}
	if !p.spec.IsEvenFor(shape) {
		return p.selectDomains(p.unevenDomains(shape), semantics), nil
	}
	local, err := p.spec.LocalShapeFromGlobalShape(shape)
	if err != nil {
		return nil, err
	}
	sliceDomains := make([]index.Domain, p.spec.NumShards())
	for slice := range sliceDomains {
		sliceDomains[slice] = index.NewDomain(index.New(p.spec.SliceOrigin(slice, local)...), local)
	}
	all := make([]index.Domain, p.devices.Size())
	for deviceID, slice := range p.spec.SliceAssignment() {
		all[deviceID] = sliceDomains[slice]
	}
	return p.selectDomains(all, semantics), nil
}

// unevenDomains returns the domain of every device when some dimension is not divisible by its
// number of shards.
func (p *SpecDerived) unevenDomains(shape shapes.Shape) []index.Domain {
	warnSlowPath(p)
	klog.V(2).Infof("%s: uneven partitioning of shape %s", p, shape)
	dimShards := p.spec.DimShards()
	ceilShards := make([]int64, shape.Rank())
	for axis, shards := range dimShards {
		ceilShards[axis] = ceilDiv(shape.Dim(axis), shards)
	}
	all := make([]index.Domain, p.devices.Size())
	for deviceID, slice := range p.spec.SliceAssignment() {
		all[deviceID] = tileDomain(shape, ceilShards, p.spec.SliceIndices(slice))
	}
	return all
}

// Hash implements Partitioning. It is computed on first use.
func (p *SpecDerived) Hash() uint64 {
	return p.hash.get(func() uint64 {
		return p.hashBase(KindSpecDerived).Uint64(p.spec.Hash()).Sum64()
	})
}

// String implements fmt.Stringer.
func (p *SpecDerived) String() string {
	return fmt.Sprintf("SpecDerivedPartitioning(%s, devices=%s, memory_kind=%s)", p.spec, p.devices, p.memoryKind)
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

// tileDomain returns the domain of the tile at the given per-axis tile indices, for tiles of tileShape
// elements: tiles at the end of an axis may be smaller, or even empty.
func tileDomain(shape shapes.Shape, tileShape []int64, tileIndices []int64) index.Domain {
	origin := make([]int64, shape.Rank())
	extent := make([]int64, shape.Rank())
	for axis := range origin {
		dim := shape.Dim(axis)
		origin[axis] = min(tileIndices[axis]*tileShape[axis], dim)
		extent[axis] = max(min(tileShape[axis], dim-origin[axis]), 0)
	}
	return index.NewDomain(index.New(origin...), shapes.Make(extent...))
}
