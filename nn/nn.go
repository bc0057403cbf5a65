// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/luma-ml/luma/internal/nn"
)

// Layers

// Linear represents a fully connected (dense) layer.
type Linear = nn.Linear

// NewLinear creates a new linear layer with Xavier initialization drawn
// from rng.
//
// Example:
//
//	layer := nn.NewLinear(784, 128, rand.New(rand.NewSource(42)))
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return nn.NewLinear(inFeatures, outFeatures, rng)
}

// NewLinearNoBias creates a linear layer without a bias term.
func NewLinearNoBias(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return nn.NewLinearNoBias(inFeatures, outFeatures, rng)
}

// Activations

// ReLU applies max(0, x) element-wise.
type ReLU = nn.ReLU

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU { return nn.NewReLU() }

// Sigmoid applies 1 / (1 + exp(-x)) element-wise.
type Sigmoid = nn.Sigmoid

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid() *Sigmoid { return nn.NewSigmoid() }

// Tanh applies the hyperbolic tangent element-wise.
type Tanh = nn.Tanh

// NewTanh creates a Tanh activation.
func NewTanh() *Tanh { return nn.NewTanh() }

// Softmax normalizes the last dimension into probabilities.
type Softmax = nn.Softmax

// NewSoftmax creates a Softmax activation.
func NewSoftmax() *Softmax { return nn.NewSoftmax() }

// Loss functions

// Loss computes a scalar training objective.
type Loss = nn.Loss

// NewMSELoss creates a mean squared error loss.
func NewMSELoss() *nn.MSELoss { return nn.NewMSELoss() }

// NewBCELoss creates a binary cross-entropy loss over probabilities.
func NewBCELoss() *nn.BCELoss { return nn.NewBCELoss() }

// NewCrossEntropyLoss creates a softmax cross-entropy loss over logits and
// class-index targets.
func NewCrossEntropyLoss() *nn.CrossEntropyLoss { return nn.NewCrossEntropyLoss() }

// LossByName returns the loss registered under name: mse, bce or
// cross_entropy.
func LossByName(name string) (Loss, error) {
	return nn.LossByName(name)
}

// Declarative models

// LayerSpec declares one layer before its parameters exist.
type LayerSpec = nn.LayerSpec

// SpecError reports an invalid layer declaration.
type SpecError = nn.SpecError

// Build creates a Sequential from specs for inputs of width inFeatures.
//
// Example:
//
//	model, err := nn.Build([]nn.LayerSpec{
//	    {Kind: "dense", Params: map[string]any{"units": 8.0, "activation": "relu"}},
//	    {Kind: "dense", Params: map[string]any{"units": 3.0}},
//	}, 4, rand.New(rand.NewSource(42)))
func Build(specs []LayerSpec, inFeatures int, rng *rand.Rand) (*Sequential, error) {
	return nn.Build(specs, inFeatures, rng)
}
