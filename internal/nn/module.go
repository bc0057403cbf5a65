// Package nn implements neural network modules for Luma.
//
// This package provides building blocks for constructing neural networks:
//   - Module interface: Base interface for all NN components
//   - Parameter: Trainable parameters with gradient tracking
//   - Linear: Fully connected layer
//   - Activations: ReLU, Sigmoid, Tanh, Softmax
//   - Loss functions: MSE, BCE, CrossEntropy
//   - Sequential: Container for stacking layers (the model)
//   - LayerSpec/Build: declarative model construction
//
// Design inspired by PyTorch's nn.Module.
package nn

import (
	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Modules can be composed to build complex architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	)
type Module interface {
	// Forward computes the output of the module given an input tensor.
	//
	// Operations run on tape; they are recorded for backward when the tape
	// is recording.
	//
	// The input tensor should have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features].
	Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error)

	// Parameters returns all trainable parameters of this module.
	//
	// Returns an empty slice for modules without trainable parameters
	// (e.g., activation functions).
	Parameters() []*Parameter
}
