// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"fmt"
	"slices"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/gomlx/shardmap/pkg/support/sets"
	"github.com/gomlx/shardmap/pkg/support/xhash"
	"github.com/gomlx/shardmap/pkg/support/xslices"
	"github.com/pkg/errors"
)

type tileMode int

const (
	tileReplicated tileMode = iota
	tileMaximal
	tileTiled
)

// Tiled is a Partitioning in the style of compiler tile assignments. It is one of:
//
//   - Replicated: every device holds the whole array.
//   - Maximal: a single device holds the whole array.
//   - Tiled: the array is cut in tiles, tileDims[i] along axis i, and tile t (row-major over tileDims) is
//     placed on the device at position tileDevices[t] of the device list. If replicateOnLastTileDim is set,
//     the last entry of tileDims is not an array axis but a replication factor.
//
// Tiles have ceil(dim/tiles) elements along each axis, except the last ones that may be smaller.
type Tiled struct {
	base
	mode                   tileMode
	maximalDevice          int
	tileDims               []int64
	tileDevices            []int
	replicateOnLastTileDim bool
	hash                   lazyHash
}

var _ Partitioning = (*Tiled)(nil)

// NewTiledReplicated creates a Tiled partitioning where every device holds the whole array.
func NewTiledReplicated(devs *devices.List, memoryKind devices.MemoryKind) *Tiled {
	return &Tiled{base: newBase(devs, memoryKind, true), mode: tileReplicated}
}

// NewTiledMaximal creates a Tiled partitioning where the device at position device of devs holds the
// whole array.
func NewTiledMaximal(devs *devices.List, memoryKind devices.MemoryKind, device int) (*Tiled, error) {
	if device < 0 || device >= devs.Size() {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewTiledMaximal: device %d out of range for %d devices",
			device, devs.Size())
	}
	return &Tiled{
		base:          newBase(devs, memoryKind, devs.Size() == 1),
		mode:          tileMaximal,
		maximalDevice: device,
	}, nil
}

// NewTiled creates a tiled partitioning.
//
// tileDevices lists, for each tile in row-major order over tileDims, the position of its device in devs.
// It must be a permutation of the device positions. If nil, tile t is placed on device t.
func NewTiled(devs *devices.List, memoryKind devices.MemoryKind, tileDims []int64, tileDevices []int,
	replicateOnLastTileDim bool) (*Tiled, error) {
	if len(tileDims) == 0 || (replicateOnLastTileDim && len(tileDims) < 2) {
		return nil, errors.Errorf("NewTiled: invalid tile dimensions %v (replicateOnLastTileDim=%v)",
			tileDims, replicateOnLastTileDim)
	}
	numTiles := 1
	for axis, tiles := range tileDims {
		if tiles <= 0 {
			return nil, errors.Errorf("NewTiled: tile dimension %d has non-positive value %d", axis, tiles)
		}
		numTiles *= int(tiles)
	}
	if numTiles != devs.Size() {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewTiled: %d tiles for %d devices", numTiles, devs.Size())
	}
	if tileDevices == nil {
		tileDevices = xslices.Iota(0, numTiles)
	}
	if len(tileDevices) != numTiles {
		return nil, errors.Wrapf(ErrDeviceCountMismatch, "NewTiled: tile assignment has %d devices for %d tiles",
			len(tileDevices), numTiles)
	}
	seen := sets.Make[int](numTiles)
	for _, device := range tileDevices {
		if device < 0 || device >= numTiles || seen.Has(device) {
			return nil, errors.Errorf("NewTiled: tile assignment %v is not a permutation of the %d devices",
				tileDevices, numTiles)
		}
		seen.Insert(device)
	}
	return &Tiled{
		base:                   newBase(devs, memoryKind, numTiles == 1),
		mode:                   tileTiled,
		tileDims:               slices.Clone(tileDims),
		tileDevices:            slices.Clone(tileDevices),
		replicateOnLastTileDim: replicateOnLastTileDim,
	}, nil
}

// Kind implements Partitioning.
func (p *Tiled) Kind() Kind { return KindTiled }

// IsReplicated returns whether it was created with NewTiledReplicated.
func (p *Tiled) IsReplicated() bool { return p.mode == tileReplicated }

// IsMaximal returns whether it was created with NewTiledMaximal.
func (p *Tiled) IsMaximal() bool { return p.mode == tileMaximal }

// dataRank is the rank of the arrays the tiling applies to.
func (p *Tiled) dataRank() int {
	if p.replicateOnLastTileDim {
		return len(p.tileDims) - 1
	}
	return len(p.tileDims)
}

func (p *Tiled) checkRank(shape shapes.Shape) error {
	if shape.Rank() != p.dataRank() {
		return errors.Wrapf(ErrShapeMismatch, "shape must have %d dimensions, but has %d dimensions: shape=%s, partitioning=%s",
			p.dataRank(), shape.Rank(), shape, p)
	}
	return nil
}

// tileShape returns the largest tile shape: ceil(dim/tiles) on each axis.
func (p *Tiled) tileShape(shape shapes.Shape) []int64 {
	tileShape := make([]int64, shape.Rank())
	for axis := range tileShape {
		tileShape[axis] = ceilDiv(shape.Dim(axis), p.tileDims[axis])
	}
	return tileShape
}

// ShardShape implements Partitioning. For uneven tilings it returns the shape of the largest tiles.
func (p *Tiled) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	if p.mode != tileTiled {
		return shape, nil
	}
	if err := p.checkRank(shape); err != nil {
		return shapes.Shape{}, err
	}
	return shapes.Make(p.tileShape(shape)...), nil
}

// isEvenFor returns whether all shards of shape have the same shape.
func (p *Tiled) isEvenFor(shape shapes.Shape) bool {
	if p.isFullyReplicated || p.mode != tileTiled {
		return true
	}
	for axis := range p.dataRank() {
		if shape.Dim(axis)%p.tileDims[axis] != 0 {
			return false
		}
	}
	return true
}

// HasSamePartitioning implements Partitioning.
func (p *Tiled) HasSamePartitioning(other Partitioning) bool {
	return hasSamePartitioning(p, other)
}

// WithDeviceAssignment implements Partitioning.
func (p *Tiled) WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error) {
	newDevices, newMemoryKind, err := p.reassign(devs, memoryKind)
	if err != nil {
		return nil, err
	}
	switch p.mode {
	case tileReplicated:
		return NewTiledReplicated(newDevices, newMemoryKind), nil
	case tileMaximal:
		return NewTiledMaximal(newDevices, newMemoryKind, p.maximalDevice)
	default:
		return NewTiled(newDevices, newMemoryKind, p.tileDims, p.tileDevices, p.replicateOnLastTileDim)
	}
}

// Disassemble implements Partitioning.
func (p *Tiled) Disassemble(shape shapes.Shape, semantics ShardSemantics) ([]Shard, error) {
	if p.mode == tileTiled {
		if err := p.checkRank(shape); err != nil {
			return nil, err
		}
	}
	if p.isEvenFor(shape) {
		shardShape, err := p.ShardShape(shape)
		if err != nil {
			return nil, err
		}
		return p.singleDeviceShards(shardShape, semantics), nil
	}
	return p.shardsFromDomains(p.tiledDomains(shape), semantics), nil
}

// DisassembleDynamic implements Partitioning. It always fails with ErrUnsupported.
func (p *Tiled) DisassembleDynamic(shape shapes.DynamicShape, _ ShardSemantics) ([]DynamicShard, error) {
	return nil, errors.Wrapf(ErrUnsupported, "%s can only disassemble static shapes, got dynamic shape %s", p, shape)
}

// IndexDomains implements Partitioning.
func (p *Tiled) IndexDomains(shape shapes.Shape, semantics ShardSemantics) ([]index.Domain, error) {
	if p.mode != tileTiled {
		return p.replicatedDomains(shape, semantics), nil
	}
	if err := p.checkRank(shape); err != nil {
		return nil, err
	}
	return p.selectDomains(p.tiledDomains(shape), semantics), nil
}

// tiledDomains returns the domain of each device, indexed by device position.
func (p *Tiled) tiledDomains(shape shapes.Shape) []index.Domain {
	if !p.isEvenFor(shape) {
		warnSlowPath(p)
	}
	tileShape := p.tileShape(shape)
	dataRank := p.dataRank()
	all := make([]index.Domain, p.devices.Size())
	for tile, tileIndices := range shapes.Make(p.tileDims...).Iter() {
		all[p.tileDevices[tile]] = tileDomain(shape, tileShape, tileIndices[:dataRank])
	}
	return all
}

// Hash implements Partitioning. It is computed on first use.
func (p *Tiled) Hash() uint64 {
	return p.hash.get(func() uint64 {
		h := p.hashBase(KindTiled).
			Int(int(p.mode)).
			Int(p.maximalDevice).
			Bool(p.replicateOnLastTileDim)
		xhash.Ints(h, p.tileDims)
		xhash.Ints(h, p.tileDevices)
		return h.Sum64()
	})
}

// String implements fmt.Stringer.
func (p *Tiled) String() string {
	var desc string
	switch p.mode {
	case tileReplicated:
		desc = "{replicated}"
	case tileMaximal:
		desc = fmt.Sprintf("{maximal device=%d}", p.maximalDevice)
	default:
		desc = fmt.Sprintf("{devices=%v<=%v", p.tileDims, p.tileDevices)
		if p.replicateOnLastTileDim {
			desc += " last_tile_dim_replicate"
		}
		desc += "}"
	}
	return fmt.Sprintf("TiledPartitioning(%s, devices=%s, memory_kind=%s)", desc, p.devices, p.memoryKind)
}
