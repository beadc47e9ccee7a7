// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/gomlx/shardmap/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Concrete is a Partitioning that stores explicitly the shape of each shard, one per device. Shards may
// have different shapes.
//
// It holds either static shapes or dynamic shapes, never both. Optionally it also holds the index domain
// of each shard.
type Concrete struct {
	base

	isDynamic bool

	// Static version.
	shape        shapes.Shape
	shardShapes  []shapes.Shape
	indexDomains []index.Domain

	// Dynamic version.
	dynamicShape       shapes.DynamicShape
	shardDynamicShapes []shapes.DynamicShape
}

var _ Partitioning = (*Concrete)(nil)

// NewConcrete creates a Concrete partitioning of an array of the given shape, with one shard shape per
// device.
//
// indexDomains is optional (nil), otherwise it must have one domain per device, with the same shape as the
// corresponding shard.
func NewConcrete(devs *devices.List, memoryKind devices.MemoryKind, shape shapes.Shape,
	shardShapes []shapes.Shape, indexDomains []index.Domain) (*Concrete, error) {
	if len(shardShapes) != devs.Size() {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewConcrete: got %d shard shapes for %d devices",
			len(shardShapes), devs.Size())
	}
	if indexDomains != nil {
		if len(indexDomains) != devs.Size() {
			return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewConcrete: got %d index domains for %d devices",
				len(indexDomains), devs.Size())
		}
		for i, domain := range indexDomains {
			if !domain.Shape().Equal(shardShapes[i]) {
				return nil, errors.Wrapf(ErrShapeMismatch, "NewConcrete: index domain #%d %s doesn't match shard shape %s",
					i, domain, shardShapes[i])
			}
		}
	}
	for i, shardShape := range shardShapes {
		if shardShape.Rank() != shape.Rank() {
			return nil, errors.Wrapf(ErrShapeMismatch, "NewConcrete: shard shape #%d %s has a different rank than shape %s",
				i, shardShape, shape)
		}
	}
	return &Concrete{
		base:         newBase(devs, memoryKind, false),
		shape:        shape,
		shardShapes:  slices.Clone(shardShapes),
		indexDomains: slices.Clone(indexDomains),
	}, nil
}

// NewConcreteDynamic creates a Concrete partitioning of an array of the given dynamic shape, with one shard
// dynamic shape per device.
func NewConcreteDynamic(devs *devices.List, memoryKind devices.MemoryKind, shape shapes.DynamicShape,
	shardShapes []shapes.DynamicShape) (*Concrete, error) {
	if len(shardShapes) != devs.Size() {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewConcreteDynamic: got %d shard shapes for %d devices",
			len(shardShapes), devs.Size())
	}
	for i, shardShape := range shardShapes {
		if shardShape.Rank() != shape.Rank() {
			return nil, errors.Wrapf(ErrShapeMismatch, "NewConcreteDynamic: shard shape #%d %s has a different rank than shape %s",
				i, shardShape, shape)
		}
	}
	return &Concrete{
		base:               newBase(devs, memoryKind, false),
		isDynamic:          true,
		dynamicShape:       shape,
		shardDynamicShapes: slices.Clone(shardShapes),
	}, nil
}

// Kind implements Partitioning.
func (p *Concrete) Kind() Kind { return KindConcrete }

// IsDynamic returns whether the partitioning holds dynamic shapes.
func (p *Concrete) IsDynamic() bool { return p.isDynamic }

// Shape returns the static shape of the array. Only valid if !IsDynamic().
func (p *Concrete) Shape() shapes.Shape { return p.shape }

// DynamicShape returns the dynamic shape of the array. Only valid if IsDynamic().
func (p *Concrete) DynamicShape() shapes.DynamicShape { return p.dynamicShape }

// ShardShapes returns a copy of the static shard shapes. Only valid if !IsDynamic().
func (p *Concrete) ShardShapes() []shapes.Shape { return slices.Clone(p.shardShapes) }

// ShardDynamicShapes returns a copy of the dynamic shard shapes. Only valid if IsDynamic().
func (p *Concrete) ShardDynamicShapes() []shapes.DynamicShape {
	return slices.Clone(p.shardDynamicShapes)
}

// ShardShape implements Partitioning. It only succeeds if the partitioning is static, and all shards
// have the same shape.
func (p *Concrete) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	if p.isDynamic {
		return shapes.Shape{}, errors.Wrapf(ErrUnsupported, "ShardShape: %s holds dynamic shapes", p)
	}
	if err := checkShape(p, p.shape, shape); err != nil {
		return shapes.Shape{}, err
	}
	if len(p.shardShapes) == 0 {
		return shapes.Shape{}, errors.Wrapf(ErrUnsupported, "ShardShape: %s has no shards", p)
	}
	first := p.shardShapes[0]
	for _, shardShape := range p.shardShapes[1:] {
		if !shardShape.Equal(first) {
			return shapes.Shape{}, errors.Wrapf(ErrUnsupported, "ShardShape: %s does not have a fixed shard shape", p)
		}
	}
	return first, nil
}

// HasSamePartitioning implements Partitioning.
func (p *Concrete) HasSamePartitioning(other Partitioning) bool {
	return hasSamePartitioning(p, other)
}

// WithDeviceAssignment implements Partitioning.
func (p *Concrete) WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error) {
	newDevices, newMemoryKind, err := p.reassign(devs, memoryKind)
	if err != nil {
		return nil, err
	}
	if p.isDynamic {
		return NewConcreteDynamic(newDevices, newMemoryKind, p.dynamicShape, p.shardDynamicShapes)
	}
	return NewConcrete(newDevices, newMemoryKind, p.shape, p.shardShapes, p.indexDomains)
}

// Disassemble implements Partitioning. shape must be the static shape of the partitioning.
func (p *Concrete) Disassemble(shape shapes.Shape, semantics ShardSemantics) ([]Shard, error) {
	if p.isDynamic {
		return nil, errors.Wrapf(ErrUnsupported, "Disassemble: %s holds dynamic shapes, use DisassembleDynamic", p)
	}
	if err := checkShape(p, p.shape, shape); err != nil {
		return nil, err
	}
	shards := make([]Shard, 0, len(p.shardShapes))
	for i, shardShape := range p.shardShapes {
		if p.includes(i, semantics) {
			shards = append(shards, Shard{Shape: shardShape, Partitioning: NewSingleDevice(p.devices.At(i), p.memoryKind)})
		}
	}
	return shards, nil
}

// DisassembleDynamic implements Partitioning. shape must be the dynamic shape of the partitioning.
func (p *Concrete) DisassembleDynamic(shape shapes.DynamicShape, semantics ShardSemantics) ([]DynamicShard, error) {
	if !p.isDynamic {
		return nil, errors.Wrapf(ErrUnsupported, "DisassembleDynamic: %s holds static shapes, use Disassemble", p)
	}
	if !shape.Equal(p.dynamicShape) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s was built for dynamic shape %s, got %s", p, p.dynamicShape, shape)
	}
	shards := make([]DynamicShard, 0, len(p.shardDynamicShapes))
	for i, shardShape := range p.shardDynamicShapes {
		if p.includes(i, semantics) {
			shards = append(shards, DynamicShard{Shape: shardShape, Partitioning: NewSingleDevice(p.devices.At(i), p.memoryKind)})
		}
	}
	return shards, nil
}

// IndexDomains implements Partitioning. It requires the partitioning to have been created with index domains.
func (p *Concrete) IndexDomains(shape shapes.Shape, semantics ShardSemantics) ([]index.Domain, error) {
	if p.isDynamic || p.indexDomains == nil {
		return nil, errors.Wrapf(ErrUnsupported, "IndexDomains: %s was created without index domains", p)
	}
	if err := checkShape(p, p.shape, shape); err != nil {
		return nil, err
	}
	return p.selectDomains(slices.Clone(p.indexDomains), semantics), nil
}

// Hash implements Partitioning.
func (p *Concrete) Hash() uint64 {
	h := p.hashBase(KindConcrete).Bool(p.isDynamic)
	if p.isDynamic {
		h.Uint64(p.dynamicShape.Hash())
		for _, shardShape := range p.shardDynamicShapes {
			h.Uint64(shardShape.Hash())
		}
	} else {
		h.Uint64(p.shape.Hash())
		for _, shardShape := range p.shardShapes {
			h.Uint64(shardShape.Hash())
		}
		h.Int(len(p.indexDomains))
		for _, domain := range p.indexDomains {
			h.Uint64(domain.Hash())
		}
	}
	return h.Sum64()
}

// String implements fmt.Stringer.
func (p *Concrete) String() string {
	if p.isDynamic {
		return fmt.Sprintf("ConcretePartitioning(dynamic_shape=%s, shard_dynamic_shapes=[%s], devices=%s, memory_kind=%s)",
			p.dynamicShape, strings.Join(xslices.Map(p.shardDynamicShapes, shapes.DynamicShape.String), ","),
			p.devices, p.memoryKind)
	}
	return fmt.Sprintf("ConcretePartitioning(shape=%s, shard_shapes=[%s], devices=%s, memory_kind=%s)",
		p.shape, strings.Join(xslices.Map(p.shardShapes, shapes.Shape.String), ","), p.devices, p.memoryKind)
}
