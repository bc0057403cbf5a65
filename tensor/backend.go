// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/luma-ml/luma/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the forward numerics of tensor operations; gradients are
// recorded separately by autodiff.Tape.
//
// Implementations:
//   - backend/cpu: Pure Go, with parallel matrix multiplication
//
// Example:
//
//	import (
//	    "github.com/luma-ml/luma/tensor"
//	    "github.com/luma-ml/luma/backend/cpu"
//	)
//
//	var backend tensor.Backend = cpu.New()
//	x, _ := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2})
//	y, err := backend.Add(x, x) // [2, 4]
type Backend = tensor.Backend
