// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package partition describes how a logical array is split into shards over a list of devices.
//
// The Partitioning interface is implemented by a closed set of variants, each trading generality for
// cost:
//
//   - SingleDevice: the whole array lives on one device.
//   - Opaque: the devices are known but the scheme is not (it belongs to some external system).
//   - Concrete: explicit per-shard shapes, possibly different from each other (uneven).
//   - ConcreteEven: one shard shape shared by all shards.
//   - SpecDerived: computed from a distributed.PartitionSpec.
//   - Tiled: tiles over the array axes with an explicit tile-to-device assignment, optionally replicated.
//
// All variants are immutable and safe for concurrent use. Shards returned by Disassemble are always
// described by a SingleDevice partitioning on the shard's device.
package partition

import (
	"fmt"

	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Kind enumerates the Partitioning variants.
type Kind int

const (
	KindSingleDevice Kind = iota
	KindOpaque
	KindConcrete
	KindConcreteEven
	KindSpecDerived
	KindTiled
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSingleDevice:
		return "SingleDevice"
	case KindOpaque:
		return "Opaque"
	case KindConcrete:
		return "Concrete"
	case KindConcreteEven:
		return "ConcreteEven"
	case KindSpecDerived:
		return "SpecDerived"
	case KindTiled:
		return "Tiled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ShardSemantics selects which shards are returned by Disassemble and IndexDomains.
type ShardSemantics int

const (
	// AddressableShards returns only the shards on devices addressable by the current process.
	AddressableShards ShardSemantics = iota

	// AllShards returns the shards on all devices, including the ones owned by other processes. It is
	// needed to describe the global view of an array in a multi-process deployment.
	AllShards
)

// String implements fmt.Stringer.
func (s ShardSemantics) String() string {
	switch s {
	case AddressableShards:
		return "AddressableShards"
	case AllShards:
		return "AllShards"
	default:
		return fmt.Sprintf("ShardSemantics(%d)", int(s))
	}
}

// Shard is the shape of one shard of an array, and the single device partitioning holding it.
type Shard struct {
	Shape        shapes.Shape
	Partitioning Partitioning
}

// DynamicShard is the dynamic shape of one shard of an array, and the single device partitioning
// holding it.
type DynamicShard struct {
	Shape        shapes.DynamicShape
	Partitioning Partitioning
}

// Partitioning describes how an array is split into shards over a list of devices.
//
// Only the variants in this package implement it.
type Partitioning interface {
	// Devices holding the shards, in the order used by Disassemble and IndexDomains.
	Devices() *devices.List

	// MemoryKind of the memory holding the shards.
	MemoryKind() devices.MemoryKind

	// IsFullyReplicated returns whether every device holds the whole array.
	IsFullyReplicated() bool

	// Kind of the variant.
	Kind() Kind

	// ShardShape returns the shape of every shard of an array of the given shape.
	// It fails if shards don't all have the same shape, or if the shape is not compatible.
	ShardShape(shape shapes.Shape) (shapes.Shape, error)

	// HasSamePartitioning returns whether both partitionings cut arrays the same way, ignoring the
	// devices and the memory kind. Different variants never have the same partitioning.
	HasSamePartitioning(other Partitioning) bool

	// WithDeviceAssignment returns a Partitioning with the same scheme but different devices and/or
	// memory kind. A nil value keeps the current one.
	// The number of devices must be the same as the current one, otherwise it fails with
	// ErrDeviceCountMismatch.
	WithDeviceAssignment(devs *devices.List, memoryKind *devices.MemoryKind) (Partitioning, error)

	// Disassemble returns one Shard per device (filtered by semantics), in device order.
	Disassemble(shape shapes.Shape, semantics ShardSemantics) ([]Shard, error)

	// DisassembleDynamic is the DynamicShape version of Disassemble.
	DisassembleDynamic(shape shapes.DynamicShape, semantics ShardSemantics) ([]DynamicShard, error)

	// IndexDomains returns the region of the array held by each shard, in the same order as Disassemble.
	// Replicated shards have identical domains.
	IndexDomains(shape shapes.Shape, semantics ShardSemantics) ([]index.Domain, error)

	// Hash returns a process-local hash of the partitioning, including devices and memory kind.
	Hash() uint64

	fmt.Stringer

	isPartitioning()
}

// Equal returns whether both partitionings have the same devices, memory kind and scheme.
func Equal(a, b Partitioning) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.MemoryKind() == b.MemoryKind() && a.Devices().Equal(b.Devices()) && a.HasSamePartitioning(b)
}

// base holds the state common to all variants.
type base struct {
	devices           *devices.List
	memoryKind        devices.MemoryKind
	isFullyReplicated bool
}

// newBase canonicalizes the memory kind against the first device.
func newBase(devs *devices.List, memoryKind devices.MemoryKind, isFullyReplicated bool) base {
	var first devices.Device
	if devs.Size() > 0 {
		first = devs.At(0)
	}
	return base{
		devices:           devs,
		memoryKind:        devices.CanonicalizeMemoryKind(memoryKind, first),
		isFullyReplicated: isFullyReplicated,
	}
}

func (b *base) Devices() *devices.List         { return b.devices }
func (b *base) MemoryKind() devices.MemoryKind { return b.memoryKind }
func (b *base) IsFullyReplicated() bool        { return b.isFullyReplicated }
func (b *base) isPartitioning()                {}

// reassign returns the devices and memory kind for WithDeviceAssignment.
func (b *base) reassign(devs *devices.List, memoryKind *devices.MemoryKind) (*devices.List, devices.MemoryKind, error) {
	newDevices := b.devices
	if devs != nil {
		if devs.Size() != b.devices.Size() {
			return nil, devices.MemoryKind{}, errors.Wrapf(ErrDeviceCountMismatch,
				"WithDeviceAssignment: requires the same number of devices, got %d, expected %d",
				devs.Size(), b.devices.Size())
		}
		newDevices = devs
	}
	newMemoryKind := b.memoryKind
	if memoryKind != nil {
		newMemoryKind = *memoryKind
	}
	return newDevices, newMemoryKind, nil
}

// includes returns whether the device at position i of the device list is selected by semantics.
func (b *base) includes(i int, semantics ShardSemantics) bool {
	return semantics == AllShards || b.devices.At(i).IsAddressable()
}

// singleDeviceShards returns a Shard per selected device, all with the given shape.
func (b *base) singleDeviceShards(shardShape shapes.Shape, semantics ShardSemantics) []Shard {
	shards := make([]Shard, 0, b.devices.Size())
	for i, device := range b.devices.All() {
		if b.includes(i, semantics) {
			shards = append(shards, Shard{Shape: shardShape, Partitioning: NewSingleDevice(device, b.memoryKind)})
		}
	}
	return shards
}

// replicatedDomains returns the domain of the full shape for each selected device.
func (b *base) replicatedDomains(shape shapes.Shape, semantics ShardSemantics) []index.Domain {
	domain := index.DomainOf(shape)
	domains := make([]index.Domain, 0, b.devices.Size())
	for i := range b.devices.Size() {
		if b.includes(i, semantics) {
			domains = append(domains, domain)
		}
	}
	return domains
}

// selectDomains filters the per-device domains by semantics.
func (b *base) selectDomains(all []index.Domain, semantics ShardSemantics) []index.Domain {
	if semantics == AllShards {
		return all
	}
	domains := make([]index.Domain, 0, len(all))
	for i, domain := range all {
		if b.includes(i, semantics) {
			domains = append(domains, domain)
		}
	}
	return domains
}

// shardsFromDomains returns a Shard per selected device with the shape of its domain.
func (b *base) shardsFromDomains(all []index.Domain, semantics ShardSemantics) []Shard {
	shards := make([]Shard, 0, len(all))
	for i, domain := range all {
		if b.includes(i, semantics) {
			shards = append(shards, Shard{Shape: domain.Shape(), Partitioning: NewSingleDevice(b.devices.At(i), b.memoryKind)})
		}
	}
	return shards
}
