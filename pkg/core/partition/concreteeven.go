// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"fmt"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/pkg/errors"
)

// ConcreteEven is a Partitioning where all shards have the same shape, stored explicitly.
//
// It doesn't know where each shard is located in the array, so IndexDomains only works when it is fully
// replicated.
type ConcreteEven struct {
	base
	shape, shardShape shapes.Shape
}

var _ Partitioning = (*ConcreteEven)(nil)

// NewConcreteEven creates a ConcreteEven partitioning of an array of the given shape, where every device
// holds a shard of shardShape.
func NewConcreteEven(devs *devices.List, memoryKind devices.MemoryKind, shape, shardShape shapes.Shape,
	isFullyReplicated bool) (*ConcreteEven, error) {
	if shape.Rank() != shardShape.Rank() {
		return nil, errors.Wrapf(ErrShapeMismatch, "NewConcreteEven: shard shape %s has a different rank than shape %s",
			shardShape, shape)
	}
	if isFullyReplicated && !shape.Equal(shardShape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "NewConcreteEven: fully replicated but shard shape %s differs from shape %s",
			shardShape, shape)
	}
	return &ConcreteEven{
		base:       newBase(devs, memoryKind, isFullyReplicated),
		shape:      shape,
		shardShape: shardShape,
	}, nil
}

// Kind implements Partitioning.
func (p *ConcreteEven) Kind() Kind { return KindConcreteEven }

// Shape of the array.
func (p *ConcreteEven) Shape() shapes.Shape { return p.shape }

// ShardShape implements Partitioning. shape must be the shape of the partitioning.
func (p *ConcreteEven) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	if err := checkShape(p, p.shape, shape); err != nil {
		return shapes.Shape{}, err
	}
	return p.shardShape, nil
}

// HasSamePartitioning implements Partitioning.
func (p *ConcreteEven) HasSamePartitioning(other Partitioning) bool {
	return hasSamePartitioning(p, other)
}

// WithDeviceAssignment implements Partitioning.
func (p *ConcreteEven) WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error) {
	newDevices, newMemoryKind, err := p.reassign(devs, memoryKind)
	if err != nil {
		return nil, err
	}
	return NewConcreteEven(newDevices, newMemoryKind, p.shape, p.shardShape, p.isFullyReplicated)
}

// Disassemble implements Partitioning.
func (p *ConcreteEven) Disassemble(shape shapes.Shape, semantics ShardSemantics) ([]Shard, error) {
	if err := checkShape(p, p.shape, shape); err != nil {
		return nil, err
	}
	return p.singleDeviceShards(p.shardShape, semantics), nil
}

// DisassembleDynamic implements Partitioning. It always fails with ErrUnsupported.
func (p *ConcreteEven) DisassembleDynamic(shape shapes.DynamicShape, _ ShardSemantics) ([]DynamicShard, error) {
	return nil, errors.Wrapf(ErrUnsupported, "%s can only disassemble static shapes, got dynamic shape %s", p, shape)
}

// IndexDomains implements Partitioning. It only works if the partitioning is fully replicated.
func (p *ConcreteEven) IndexDomains(shape shapes.Shape, semantics ShardSemantics) ([]index.Domain, error) {
	if err := checkShape(p, p.shape, shape); err != nil {
		return nil, err
	}
	if !p.isFullyReplicated {
		return nil, errors.Wrapf(ErrUnsupported, "IndexDomains: %s doesn't know where its shards are located", p)
	}
	return p.replicatedDomains(shape, semantics), nil
}

// Hash implements Partitioning.
func (p *ConcreteEven) Hash() uint64 {
	return p.hashBase(KindConcreteEven).Uint64(p.shape.Hash()).Uint64(p.shardShape.Hash()).Sum64()
}

// String implements fmt.Stringer.
func (p *ConcreteEven) String() string {
	return fmt.Sprintf("ConcreteEvenPartitioning(shape=%s, shard_shape=%s, devices=%s, memory_kind=%s)",
		p.shape, p.shardShape, p.devices, p.memoryKind)
}
