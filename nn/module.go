// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/luma-ml/luma/internal/nn"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input on an autodiff.Tape
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(4, 8, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(8, 3, rng),
//	)
type Module = nn.Module

// Sequential applies its modules in order. It is the model type trained by
// the trainer and built from layer declarations by Build.
type Sequential = nn.Sequential

// NewSequential creates a Sequential from modules.
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}
