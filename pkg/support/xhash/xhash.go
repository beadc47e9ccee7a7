// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package xhash provides a small builder to compute structural hashes of value types.
//
// Hashes built here are meant for in-process use only (map keys, caches): their values are
// deterministic, but no guarantee is made that they stay the same across versions.
// For hashes that must be compared across processes, see devices.List.Fingerprint.
package xhash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hasher accumulates values into a 64-bit hash.
type Hasher struct {
	digest *xxhash.Digest
	buf    [8]byte
}

// New returns a new empty Hasher.
func New() *Hasher {
	return &Hasher{digest: xxhash.New()}
}

// Uint64 adds v to the hash.
func (h *Hasher) Uint64(v uint64) *Hasher {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.digest.Write(h.buf[:])
	return h
}

// Int adds v to the hash.
func (h *Hasher) Int(v int) *Hasher {
	return h.Uint64(uint64(v))
}

// Int64 adds v to the hash.
func (h *Hasher) Int64(v int64) *Hasher {
	return h.Uint64(uint64(v))
}

// Bool adds v to the hash.
func (h *Hasher) Bool(v bool) *Hasher {
	if v {
		return h.Uint64(1)
	}
	return h.Uint64(0)
}

// String adds the string s to the hash, prefixed by its length.
func (h *Hasher) String(s string) *Hasher {
	h.Int(len(s))
	_, _ = h.digest.WriteString(s)
	return h
}

// Ints adds the length and all elements of values to the hash.
func Ints[T ~int | ~int64 | ~int32](h *Hasher, values []T) *Hasher {
	h.Int(len(values))
	for _, v := range values {
		h.Int64(int64(v))
	}
	return h
}

// Sum64 returns the current hash value. The Hasher can still be used afterwards.
func (h *Hasher) Sum64() uint64 {
	return h.digest.Sum64()
}
