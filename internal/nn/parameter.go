package nn

import (
	"github.com/luma-ml/luma/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are tensors that require gradient computation during training.
// They typically represent weights and biases of layers. The gradient lives
// in the tensor's own gradient buffer, filled by autodiff.Tape.Backward.
//
// Example:
//
//	// Create a weight parameter
//	weight := nn.NewParameter("weight", weightTensor)
//
//	// Access the tensor
//	w := weight.Tensor()
//
//	// Get gradient after backward pass
//	grad := weight.Grad()
type Parameter struct {
	name   string         // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor // The parameter tensor
}

// NewParameter creates a new trainable parameter and marks its tensor as
// requiring gradients.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	t.SetRequiresGrad(true)
	return &Parameter{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been computed yet (before backward pass).
func (p *Parameter) Grad() *tensor.Tensor {
	return p.tensor.Grad()
}

// SetGrad overwrites the gradient with g.
//
// Used by data-parallel training, which reduces shard gradients outside the
// tensor and writes the result back.
func (p *Parameter) SetGrad(g *tensor.Tensor) error {
	p.tensor.ZeroGrad()
	return p.tensor.AccumulateGrad(g)
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter) ZeroGrad() {
	p.tensor.ZeroGrad()
}
