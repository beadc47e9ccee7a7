// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package partition

import "github.com/pkg/errors"

var (
	// ErrUnsupported is returned (wrapped) when a Partitioning variant cannot perform the requested
	// operation, e.g.: disassembling an Opaque partitioning, or a dynamic shape with a variant that
	// only handles static shapes.
	ErrUnsupported = errors.New("unsupported by partitioning")

	// ErrDeviceCountMismatch is returned (wrapped) when a number of devices doesn't match the number
	// of devices (or tiles) the partitioning requires.
	ErrDeviceCountMismatch = errors.New("device count mismatch")

	// ErrShapeMismatch is returned (wrapped) when a shape is not compatible with the partitioning:
	// a different shape than the one it was built for, or a different rank than its tiling.
	ErrShapeMismatch = errors.New("shape mismatch")
)
