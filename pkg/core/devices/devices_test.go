// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package devices

import (
	"fmt"
	"sync"
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVirtualDevices(t *testing.T) {
	devs := must.M1(NewVirtualDevices(8, 2, 1))
	require.Len(t, devs, 8)
	for i, d := range devs {
		assert.Equal(t, ID(i), d.ID())
		assert.Equal(t, i/4, d.ProcessIndex())
		assert.Equal(t, i >= 4, d.IsAddressable(), "device %d", i)
		kind, err := d.DefaultMemoryKind()
		require.NoError(t, err)
		assert.Equal(t, DefaultVirtualMemoryKind, kind)
	}

	_, err := NewVirtualDevices(6, 4, 0)
	require.Error(t, err)
	_, err = NewVirtualDevices(4, 2, 2)
	require.Error(t, err)
	_, err = NewVirtualDevices(0, 1, 0)
	require.Error(t, err)
}

func TestList(t *testing.T) {
	devs := must.M1(NewVirtualDevices(4, 2, 0))
	list := NewList(devs...)
	assert.Equal(t, 4, list.Size())
	assert.Equal(t, []ID{0, 1, 2, 3}, list.IDs())
	assert.Equal(t, devs[2], list.At(2))
	count := 0
	for i, d := range list.All() {
		assert.Equal(t, devs[i], d)
		count++
	}
	assert.Equal(t, 4, count)
	assert.Equal(t,
		"DeviceList([VirtualDevice(id=0, process=0),VirtualDevice(id=1, process=0),"+
			"VirtualDevice(id=2, process=1),VirtualDevice(id=3, process=1)])", list.String())

	t.Run("Addressable", func(t *testing.T) {
		addressable := list.AddressableList()
		assert.Equal(t, []ID{0, 1}, addressable.IDs())
		assert.Same(t, addressable, list.AddressableList(), "AddressableList should be cached")
		assert.False(t, list.IsFullyAddressable())

		local := NewList(devs[:2]...)
		assert.True(t, local.IsFullyAddressable())
		assert.Same(t, local, local.AddressableList())
	})

	t.Run("ConcurrentAddressable", func(t *testing.T) {
		fresh := NewList(devs...)
		results := make([]*List, 16)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = fresh.AddressableList()
			}()
		}
		wg.Wait()
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})

	t.Run("Equal", func(t *testing.T) {
		assert.True(t, list.Equal(NewList(devs...)))
		assert.False(t, list.Equal(NewList(devs[1], devs[0], devs[2], devs[3])))
		assert.False(t, list.Equal(NewList(devs[:3]...)))
		assert.Equal(t, list.Hash(), NewList(devs...).Hash())
	})

	t.Run("Fingerprint", func(t *testing.T) {
		// Independently constructed devices with the same ids have the same fingerprint, even
		// though they are not the same objects.
		other := NewList(must.M1(NewVirtualDevices(4, 1, 0))...)
		assert.False(t, list.Equal(other))
		assert.Equal(t, list.Fingerprint(), other.Fingerprint())

		reversed := NewList(devs[3], devs[2], devs[1], devs[0])
		assert.NotEqual(t, list.Fingerprint(), reversed.Fingerprint())
		assert.NotEqual(t, list.Fingerprint(), NewList(devs[:3]...).Fingerprint())
	})

	assert.Panics(t, func() { NewList(devs[0], nil) })
}

func TestMemoryKind(t *testing.T) {
	var unset MemoryKind
	assert.True(t, unset.IsDefault())
	assert.Equal(t, "(default)", unset.String())
	assert.Equal(t, unset, NewMemoryKind(""))

	pinned := NewMemoryKind("pinned_host")
	name := fmt.Sprintf("pinned_%s", "host")
	assert.True(t, pinned == NewMemoryKind(name))
	assert.False(t, pinned == NewMemoryKind("device"))
	assert.Equal(t, "pinned_host", pinned.Name())
	assert.Equal(t, "pinned_host", pinned.String())

	dev := NewVirtual(0, 0, true, NewMemoryKind("device"))
	assert.Equal(t, NewMemoryKind("device"), CanonicalizeMemoryKind(unset, dev))
	assert.Equal(t, pinned, CanonicalizeMemoryKind(pinned, dev))

	noDefault := NewVirtual(1, 0, true, MemoryKind{})
	assert.True(t, CanonicalizeMemoryKind(unset, noDefault).IsDefault())
	assert.True(t, CanonicalizeMemoryKind(unset, nil).IsDefault())
}
