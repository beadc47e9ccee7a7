// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

import (
	"encoding/binary"
	"iter"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/shardmap/pkg/support/xhash"
	"github.com/minio/highwayhash"
)

// List is an ordered, immutable list of devices.
//
// It is safe for concurrent use: the only state that changes after construction is the cached
// addressable sub-list, which is computed on first use.
type List struct {
	devices []Device

	// addressable caches AddressableList(). If all devices are addressable, it points to the
	// List itself.
	addressable atomic.Pointer[List]
}

// NewList creates a List with the given devices. The slice is copied.
func NewList(devices ...Device) *List {
	for i, d := range devices {
		if d == nil {
			exceptions.Panicf("devices.NewList(): device #%d is nil", i)
		}
	}
	return &List{devices: slices.Clone(devices)}
}

// Size returns the number of devices in the list.
func (l *List) Size() int { return len(l.devices) }

// At returns the i-th device.
func (l *List) At(i int) Device { return l.devices[i] }

// All iterates over the position and device of the list.
func (l *List) All() iter.Seq2[int, Device] {
	return slices.All(l.devices)
}

// IDs returns the ids of the devices, in order.
func (l *List) IDs() []ID {
	ids := make([]ID, len(l.devices))
	for i, d := range l.devices {
		ids[i] = d.ID()
	}
	return ids
}

// AddressableList returns the sub-list of devices addressable by the current process, preserving
// order.
//
// The result is computed on the first call and cached. If every device is addressable, it returns l
// itself.
func (l *List) AddressableList() *List {
	if cached := l.addressable.Load(); cached != nil {
		return cached
	}
	var addressable []Device
	for _, d := range l.devices {
		if d.IsAddressable() {
			addressable = append(addressable, d)
		}
	}
	result := l
	if len(addressable) != len(l.devices) {
		result = &List{devices: addressable}
	}
	// Concurrent callers may compute the same value: the first one stored wins.
	if !l.addressable.CompareAndSwap(nil, result) {
		return l.addressable.Load()
	}
	return result
}

// IsFullyAddressable returns whether all devices in the list are addressable by the current process.
func (l *List) IsFullyAddressable() bool {
	return l.AddressableList() == l
}

// Equal returns whether both lists hold the same devices in the same order.
func (l *List) Equal(other *List) bool {
	if l == other {
		return true
	}
	if l == nil || other == nil {
		return false
	}
	return slices.Equal(l.devices, other.devices)
}

// Hash returns a process-local hash of the list. Use Fingerprint for a value that can be compared
// across processes.
func (l *List) Hash() uint64 {
	h := xhash.New().Int(len(l.devices))
	for _, d := range l.devices {
		h.Int(int(d.ID()))
	}
	return h.Sum64()
}

// fingerprintKey is the fixed HighwayHash key used by Fingerprint. It must never change, since
// fingerprints are compared across processes.
var fingerprintKey = func() []byte {
	key := make([]byte, 0, 32)
	for _, word := range []uint64{0x4ea9929a25d561c6, 0x98470d187b523e8f, 0x592040a2da3c4b53, 0xbff8b246e3c587a2} {
		key = binary.LittleEndian.AppendUint64(key, word)
	}
	return key
}()

// Fingerprint returns a hash of the ordered device ids that is stable across processes and
// restarts: two lists with the same id sequence have the same fingerprint.
func (l *List) Fingerprint() uint64 {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		// Only happens if the key is not 32 bytes long.
		panic(err)
	}
	var buf [8]byte
	for _, d := range l.devices {
		binary.LittleEndian.PutUint64(buf[:], uint64(d.ID()))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// String implements fmt.Stringer.
func (l *List) String() string {
	parts := make([]string, len(l.devices))
	for i, d := range l.devices {
		parts[i] = d.String()
	}
	return "DeviceList([" + strings.Join(parts, ",") + "])"
}
