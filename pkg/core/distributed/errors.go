// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package distributed

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidSpec is returned (wrapped) when a PartitionSpec or its mesh description is malformed,
	// or when its shards cannot be laid out on the mesh.
	ErrInvalidSpec = errors.New("invalid partition spec")

	// ErrNotDivisible is returned (wrapped) when a shape conversion requires exact division and a
	// dimension is not divisible by its number of shards.
	ErrNotDivisible = errors.New("dimension not divisible by number of shards")

	// ErrRankMismatch is returned (wrapped) when a shape has a different rank than the spec it is used with.
	ErrRankMismatch = errors.New("rank mismatch")
)

// UnplaceableDimsError is returned by PartitionSpec.Verify when some sharded dimensions cannot be
// placed on the mesh.
//
// It matches ErrInvalidSpec with errors.Is.
type UnplaceableDimsError struct {
	DimShards    []int64
	MinorToMajor MinorToMajor

	// Dims are the indices into DimShards that could not be placed.
	Dims []int
}

// Error implements error.
func (e *UnplaceableDimsError) Error() string {
	return fmt.Sprintf("can't shard the dims %s to the mesh of %s: dims %v could not be placed",
		joinDims(e.DimShards, "x"), e.MinorToMajor, e.Dims)
}

// Unwrap returns ErrInvalidSpec.
func (e *UnplaceableDimsError) Unwrap() error {
	return ErrInvalidSpec
}
