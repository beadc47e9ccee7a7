// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import (
	"sync"
	"sync/atomic"

	"github.com/gomlx/shardmap/pkg/support/xhash"
	"k8s.io/klog/v2"
)

// lazyHash memoizes a hash value. 0 means "not computed yet".
//
// Concurrent callers may all compute the hash and store it: the value is deterministic, so the last
// store wins with the same result.
type lazyHash struct {
	value atomic.Uint64
}

func (h *lazyHash) get(compute func() uint64) uint64 {
	if v := h.value.Load(); v != 0 {
		return v
	}
	v := compute()
	if v == 0 {
		v = 1
	}
	h.value.Store(v)
	return v
}

// hashBase starts a hash with the devices and the memory kind.
func (b *base) hashBase(kind Kind) *xhash.Hasher {
	return xhash.New().
		Int(int(kind)).
		Uint64(b.devices.Hash()).
		String(b.memoryKind.Name()).
		Bool(b.isFullyReplicated)
}

var slowPathWarning sync.Once

// warnSlowPath logs, once per process, that an uneven partitioning over many devices is being
// enumerated device by device.
func warnSlowPath(p Partitioning) {
	if p.Devices().Size() <= 8 {
		return
	}
	slowPathWarning.Do(func() {
		klog.Warningf("Taking a slow path for uneven %s partitioning over %d devices: this will not scale "+
			"for a large number of devices.", p.Kind(), p.Devices().Size())
	})
}
