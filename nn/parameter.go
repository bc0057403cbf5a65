// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters wrap a tensor that requires gradients; optimizers update the
// tensor in place from its accumulated gradient.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name and tensor.
// The tensor is marked as requiring gradients.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, t)
}
