// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shardmap/pkg/core/index"
	"github.com/gomlx/shardmap/pkg/core/shapes"
)

// hasSamePartitioning compares the schemes of two partitionings, ignoring devices and memory kinds.
//
// Different variants never match, nor do partitionings over a different number of devices. Adding a
// variant requires adding its case here.
func hasSamePartitioning(a, b Partitioning) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Devices().Size() != b.Devices().Size() {
		return false
	}
	switch pa := a.(type) {
	case *SingleDevice:
		_, ok := b.(*SingleDevice)
		return ok

	case *Opaque:
		// Only the same instance, handled above.
		return false

	case *Concrete:
		pb, ok := b.(*Concrete)
		if !ok || pa.isDynamic != pb.isDynamic {
			return false
		}
		if pa.isDynamic {
			return pa.dynamicShape.Equal(pb.dynamicShape) &&
				slices.EqualFunc(pa.shardDynamicShapes, pb.shardDynamicShapes, shapes.DynamicShape.Equal)
		}
		return pa.shape.Equal(pb.shape) &&
			slices.EqualFunc(pa.shardShapes, pb.shardShapes, shapes.Shape.Equal) &&
			slices.EqualFunc(pa.indexDomains, pb.indexDomains, index.Domain.Equal)

	case *ConcreteEven:
		pb, ok := b.(*ConcreteEven)
		return ok && pa.isFullyReplicated == pb.isFullyReplicated &&
			pa.shape.Equal(pb.shape) && pa.shardShape.Equal(pb.shardShape)

	case *SpecDerived:
		pb, ok := b.(*SpecDerived)
		return ok && pa.spec.Equal(pb.spec)

	case *Tiled:
		pb, ok := b.(*Tiled)
		return ok && pa.mode == pb.mode && pa.maximalDevice == pb.maximalDevice &&
			pa.replicateOnLastTileDim == pb.replicateOnLastTileDim &&
			slices.Equal(pa.tileDims, pb.tileDims) && slices.Equal(pa.tileDevices, pb.tileDevices)

	default:
		exceptions.Panicf("hasSamePartitioning: unknown partitioning variant %T", a)
		return false
	}
}
