// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"fmt"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Opaque is a Partitioning whose devices are known, but whose scheme is not: it belongs to an external
// system. It cannot compute shard shapes nor index domains.
type Opaque struct {
	base
}

var _ Partitioning = (*Opaque)(nil)

// NewOpaque creates an Opaque partitioning over the given devices.
func NewOpaque(devs *devices.List, memoryKind devices.MemoryKind) *Opaque {
	return &Opaque{base: newBase(devs, memoryKind, false)}
}

// Kind implements Partitioning.
func (p *Opaque) Kind() Kind { return KindOpaque }

func (p *Opaque) unsupported(op string) error {
	return errors.Wrapf(ErrUnsupported, "%s: %s has no partitioning information", op, p)
}

// ShardShape implements Partitioning. It always fails with ErrUnsupported.
func (p *Opaque) ShardShape(shapes.Shape) (shapes.Shape, error) {
	return shapes.Shape{}, p.unsupported("ShardShape")
}

// HasSamePartitioning implements Partitioning. It only holds for the same instance.
func (p *Opaque) HasSamePartitioning(other Partitioning) bool {
	return hasSamePartitioning(p, other)
}

// WithDeviceAssignment implements Partitioning. The result is a new, unrelated, Opaque partitioning.
func (p *Opaque) WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error) {
	newDevices, newMemoryKind, err := p.reassign(devs, memoryKind)
	if err != nil {
		return nil, err
	}
	return NewOpaque(newDevices, newMemoryKind), nil
}

// Disassemble implements Partitioning. It always fails with ErrUnsupported.
func (p *Opaque) Disassemble(shapes.Shape, ShardSemantics) ([]Shard, error) {
	return nil, p.unsupported("Disassemble")
}

// DisassembleDynamic implements Partitioning. It always fails with ErrUnsupported.
func (p *Opaque) DisassembleDynamic(shapes.DynamicShape, ShardSemantics) ([]DynamicShard, error) {
	return nil, p.unsupported("DisassembleDynamic")
}

// IndexDomains implements Partitioning. It always fails with ErrUnsupported.
func (p *Opaque) IndexDomains(shapes.Shape, ShardSemantics) ([]index.Domain, error) {
	return nil, p.unsupported("IndexDomains")
}

// Hash implements Partitioning.
func (p *Opaque) Hash() uint64 {
	return p.hashBase(KindOpaque).Sum64()
}

// String implements fmt.Stringer.
func (p *Opaque) String() string {
	return fmt.Sprintf("OpaquePartitioning(devices=%s, memory_kind=%s)", p.devices, p.memoryKind)
}
