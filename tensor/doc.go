// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for Luma tensors.
//
// # Overview
//
// A Tensor is a dense, row-major array of float64 values with a Shape.
// Element-wise operations follow NumPy-style broadcasting. Tensors that
// require gradients accumulate them when a backward pass runs through an
// autodiff.Tape.
//
// # Basic Usage
//
//	import (
//	    "github.com/luma-ml/luma/autodiff"
//	    "github.com/luma-ml/luma/backend/cpu"
//	    "github.com/luma-ml/luma/tensor"
//	)
//
//	func main() {
//	    a, _ := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	    b, _ := tensor.FromSlice([]float64{4, 5, 6}, tensor.Shape{3})
//	    a.SetRequiresGrad(true)
//
//	    tape := autodiff.NewTape(cpu.New())
//	    tape.StartRecording()
//	    c, _ := tape.Add(a, b)     // [5, 7, 9]
//	    s, _ := tape.Sum(c)
//	    _ = tape.Backward(s)       // a.Grad() = [1, 1, 1]
//	}
//
// # Errors
//
// Incompatible shapes are reported as *ShapeError and invalid numeric
// domains (division by zero, log of a non-positive value, non-finite
// results) as *NumericError.
package tensor
