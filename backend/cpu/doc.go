// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float64 tensors
//   - NumPy-compatible broadcasting
//   - Row-parallel matrix multiplication
//
// # Basic Usage
//
//	import (
//	    "github.com/luma-ml/luma/backend/cpu"
//	    "github.com/luma-ml/luma/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Ones(tensor.Shape{2, 3})
//	    y, err := backend.Add(x, x)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
