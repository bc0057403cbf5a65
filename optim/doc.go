// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training neural networks.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Learning rate schedulers: step, exponential, cosine and time decay,
//     reduce on plateau and cyclic
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/luma-ml/luma/optim"
//	    "github.com/luma-ml/luma/nn"
//	)
//
//	func main() {
//	    model := nn.NewSequential(nn.NewLinear(4, 3, rng))
//
//	    // Create optimizer
//	    optimizer := optim.NewAdam(
//	        model.Parameters(),
//	        optim.AdamConfig{
//	            LR:    0.001,
//	            Betas: [2]float64{0.9, 0.999},
//	        },
//	    )
//
//	    // Training loop
//	    for epoch := range 10 {
//	        tape := autodiff.NewTape(cpu.New())
//	        tape.StartRecording()
//
//	        // Forward pass
//	        logits, _ := model.ForwardLogits(tape, x)
//	        loss, _ := criterion.Forward(tape, logits, y)
//
//	        // Backward pass
//	        optimizer.ZeroGrad()
//	        _ = tape.Backward(loss)
//	        _ = optimizer.Step()
//	    }
//	}
//
// # Training Loop Pattern
//
// Gradients accumulate in the parameters' tensors, so every step starts
// with ZeroGrad. Step returns a *tensor.NumericError when an update produces
// a non-finite parameter value.
package optim
