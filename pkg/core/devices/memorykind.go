// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

import (
	"unique"

	"k8s.io/klog/v2"
)

// MemoryKind identifies a flavor of memory space of a device, e.g.: "device", "pinned_host".
//
// Names are interned in a process-wide pool, so comparing two MemoryKind with == is O(1) and equal
// names always compare equal.
// The zero value is the unset kind, meaning "the device's default".
type MemoryKind struct {
	handle unique.Handle[string]
	set    bool
}

// NewMemoryKind returns the MemoryKind for the given name. An empty name returns the unset kind.
func NewMemoryKind(name string) MemoryKind {
	if name == "" {
		return MemoryKind{}
	}
	return MemoryKind{handle: unique.Make(name), set: true}
}

// IsDefault returns whether the kind is unset.
func (m MemoryKind) IsDefault() bool { return !m.set }

// Name of the memory kind, or "" if unset.
func (m MemoryKind) Name() string {
	if !m.set {
		return ""
	}
	return m.handle.Value()
}

// String implements fmt.Stringer.
func (m MemoryKind) String() string {
	if !m.set {
		return "(default)"
	}
	return m.handle.Value()
}

// CanonicalizeMemoryKind returns kind if it is set. Otherwise it returns the default memory kind of
// the device, or the unset kind if device is nil or has no default memory.
func CanonicalizeMemoryKind(kind MemoryKind, device Device) MemoryKind {
	if !kind.IsDefault() || device == nil {
		return kind
	}
	defaultKind, err := device.DefaultMemoryKind()
	if err != nil {
		klog.V(2).Infof("CanonicalizeMemoryKind: %v", err)
		return MemoryKind{}
	}
	return defaultKind
}
