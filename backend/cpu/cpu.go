// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/parallel"
	"github.com/luma-ml/luma/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of all tensor operations,
// splitting matrix multiplication rows across goroutines.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend that uses every available CPU.
//
// Example:
//
//	import (
//	    "github.com/luma-ml/luma/autodiff"
//	    "github.com/luma-ml/luma/backend/cpu"
//	)
//
//	func main() {
//	    tape := autodiff.NewTape(cpu.New())
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend whose kernels use at most workers
// goroutines. Values below 2 run serially.
func NewWithWorkers(workers int) *Backend {
	cfg := parallel.DefaultConfig()
	cfg.NumWorkers = workers
	cfg.Enabled = workers > 1
	return internalcpu.NewWithConfig(cfg)
}
