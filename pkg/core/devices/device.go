// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package devices defines the device handles consumed by the partitioning engine: Device, List and
// MemoryKind.
//
// Devices themselves are owned by the runtime client (the device registry). This package only
// defines the interface through which the engine sees them, plus Virtual devices used for
// testing and for offline inspection of partitionings.
package devices

import (
	"fmt"

	"github.com/pkg/errors"
)

// ID is the stable integer identifier of a device, as given by the device registry.
type ID int

// Device is a handle to a compute device owned by the runtime client.
//
// Implementations must be comparable (pointers are the common case): List.Equal compares devices by
// identity.
type Device interface {
	// ID returns the stable device identifier.
	ID() ID

	// IsAddressable returns whether the current process can directly command the device.
	IsAddressable() bool

	// ProcessIndex returns the index of the process that owns the device.
	ProcessIndex() int

	// DefaultMemoryKind returns the memory kind used when none is given explicitly.
	// It may return an error if the device has no default memory.
	DefaultMemoryKind() (MemoryKind, error)

	fmt.Stringer
}

// Virtual is an in-memory Device, used in tests and by tools that inspect partitionings
// without a runtime.
type Virtual struct {
	id            ID
	processIndex  int
	addressable   bool
	defaultMemory MemoryKind
}

// Assert Virtual implements Device.
var _ Device = (*Virtual)(nil)

// NewVirtual creates a virtual device. defaultMemory may be the zero MemoryKind, in which case
// DefaultMemoryKind returns an error.
func NewVirtual(id ID, processIndex int, addressable bool, defaultMemory MemoryKind) *Virtual {
	return &Virtual{id: id, processIndex: processIndex, addressable: addressable, defaultMemory: defaultMemory}
}

// DefaultVirtualMemoryKind is the default memory kind of the devices created by NewVirtualDevices.
var DefaultVirtualMemoryKind = NewMemoryKind("device")

// NewVirtualDevices creates numDevices virtual devices with ids 0...numDevices-1, split in contiguous
// blocks over numProcesses processes.
// Only the devices of localProcess are addressable.
func NewVirtualDevices(numDevices, numProcesses, localProcess int) ([]Device, error) {
	if numDevices <= 0 || numProcesses <= 0 {
		return nil, errors.Errorf("NewVirtualDevices(numDevices=%d, numProcesses=%d): both must be positive",
			numDevices, numProcesses)
	}
	if numDevices%numProcesses != 0 {
		return nil, errors.Errorf("NewVirtualDevices: numDevices=%d not divisible by numProcesses=%d",
			numDevices, numProcesses)
	}
	if localProcess < 0 || localProcess >= numProcesses {
		return nil, errors.Errorf("NewVirtualDevices: localProcess=%d out of range for %d processes",
			localProcess, numProcesses)
	}
	perProcess := numDevices / numProcesses
	devs := make([]Device, numDevices)
	for i := range devs {
		process := i / perProcess
		devs[i] = NewVirtual(ID(i), process, process == localProcess, DefaultVirtualMemoryKind)
	}
	return devs, nil
}

// ID implements Device.
func (d *Virtual) ID() ID { return d.id }

// IsAddressable implements Device.
func (d *Virtual) IsAddressable() bool { return d.addressable }

// ProcessIndex implements Device.
func (d *Virtual) ProcessIndex() int { return d.processIndex }

// DefaultMemoryKind implements Device.
func (d *Virtual) DefaultMemoryKind() (MemoryKind, error) {
	if d.defaultMemory.IsDefault() {
		return MemoryKind{}, errors.Errorf("%s has no default memory kind", d)
	}
	return d.defaultMemory, nil
}

// String implements fmt.Stringer.
func (d *Virtual) String() string {
	return fmt.Sprintf("VirtualDevice(id=%d, process=%d)", d.id, d.processIndex)
}
