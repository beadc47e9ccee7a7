// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"fmt"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/pkg/errors"
)

// SingleDevice is a Partitioning where the whole array lives on one device.
type SingleDevice struct {
	base
}

var _ Partitioning = (*SingleDevice)(nil)

// NewSingleDevice creates a SingleDevice partitioning. If memoryKind is unset, the device's default is used.
func NewSingleDevice(device devices.Device, memoryKind devices.MemoryKind) *SingleDevice {
	return &SingleDevice{base: newBase(devices.NewList(device), memoryKind, true)}
}

// Device holding the array.
func (p *SingleDevice) Device() devices.Device { return p.devices.At(0) }

// Kind implements Partitioning.
func (p *SingleDevice) Kind() Kind { return KindSingleDevice }

// ShardShape implements Partitioning: the shard is the whole array.
func (p *SingleDevice) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	return shape, nil
}

// HasSamePartitioning implements Partitioning.
func (p *SingleDevice) HasSamePartitioning(other Partitioning) bool {
	return hasSamePartitioning(p, other)
}

// WithDeviceAssignment implements Partitioning.
func (p *SingleDevice) WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error) {
	newDevices, newMemoryKind, err := p.reassign(devs, memoryKind)
	if err != nil {
		return nil, err
	}
	return NewSingleDevice(newDevices.At(0), newMemoryKind), nil
}

// Disassemble implements Partitioning.
func (p *SingleDevice) Disassemble(shape shapes.Shape, semantics ShardSemantics) ([]Shard, error) {
	shards := make([]Shard, 0, 1)
	if p.includes(0, semantics) {
		shards = append(shards, Shard{Shape: shape, Partitioning: p})
	}
	return shards, nil
}

// DisassembleDynamic implements Partitioning.
func (p *SingleDevice) DisassembleDynamic(shape shapes.DynamicShape, semantics ShardSemantics) ([]DynamicShard, error) {
	shards := make([]DynamicShard, 0, 1)
	if p.includes(0, semantics) {
		shards = append(shards, DynamicShard{Shape: shape, Partitioning: p})
	}
	return shards, nil
}

// IndexDomains implements Partitioning.
func (p *SingleDevice) IndexDomains(shape shapes.Shape, semantics ShardSemantics) ([]index.Domain, error) {
	return p.replicatedDomains(shape, semantics), nil
}

// Hash implements Partitioning.
func (p *SingleDevice) Hash() uint64 {
	return p.hashBase(KindSingleDevice).Sum64()
}

// String implements fmt.Stringer.
func (p *SingleDevice) String() string {
	return fmt.Sprintf("SingleDevicePartitioning(%s, memory_kind=%s)", p.Device(), p.memoryKind)
}

// checkShape returns an ErrShapeMismatch error if got is different from want.
func checkShape(p Partitioning, want, got shapes.Shape) error {
	if !want.Equal(got) {
		return errors.Wrapf(ErrShapeMismatch, "%s was built for shape %s, got %s", p, want, got)
	}
	return nil
}
