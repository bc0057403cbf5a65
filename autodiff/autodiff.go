// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation (backpropagation)
// using a gradient tape. The tape computes forward values with any backend
// and records the operations whose inputs require gradients.
//
// Example:
//
//	import (
//	    "github.com/luma-ml/luma/autodiff"
//	    "github.com/luma-ml/luma/backend/cpu"
//	    "github.com/luma-ml/luma/tensor"
//	)
//
//	func main() {
//	    tape := autodiff.NewTape(cpu.New())
//	    tape.StartRecording()
//
//	    x, _ := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	    x.SetRequiresGrad(true)
//	    y, _ := tape.Mul(x, x) // Operations recorded on tape
//	    loss, _ := tape.Sum(y)
//
//	    // Compute gradients
//	    _ = tape.Backward(loss) // x.Grad() == [2, 4, 6]
//	}
package autodiff

import (
	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/tensor"
)

// Tape records operations for automatic differentiation.
type Tape = autodiff.Tape

// Grads maps tensors to their gradients.
type Grads = autodiff.Grads

// GradientError reports a backward pass that cannot run, such as one from
// a non-scalar output.
type GradientError = autodiff.GradientError

// NewTape creates a new, non-recording gradient tape on backend.
//
// Example:
//
//	tape := autodiff.NewTape(cpu.New())
//	tape.StartRecording()
func NewTape(backend tensor.Backend) *Tape {
	return autodiff.NewTape(backend)
}
