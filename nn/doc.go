// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and utilities for Luma.
//
// # Overview
//
// This package contains:
//   - Module interface and Sequential container
//   - Parameter: trainable tensors with gradient tracking
//   - Linear layer with Xavier initialization
//   - Activations: ReLU, Sigmoid, Tanh, Softmax
//   - Losses: MSE, BCE, CrossEntropy
//   - LayerSpec and Build for declarative models
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/luma-ml/luma/autodiff"
//	    "github.com/luma-ml/luma/backend/cpu"
//	    "github.com/luma-ml/luma/nn"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewSource(42))
//	    model := nn.NewSequential(
//	        nn.NewLinear(4, 8, rng),
//	        nn.NewReLU(),
//	        nn.NewLinear(8, 3, rng),
//	    )
//
//	    tape := autodiff.NewTape(cpu.New())
//	    tape.StartRecording()
//	    logits, _ := model.ForwardLogits(tape, x)
//	    loss, _ := nn.NewCrossEntropyLoss().Forward(tape, logits, y)
//	    _ = tape.Backward(loss)
//	}
package nn
