package nn

import (
	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// Example:
//
//	relu := nn.NewReLU()
//	output, _ := relu.Forward(tape, input) // All negative values become 0
type ReLU struct{}

// NewReLU creates a new ReLU activation module.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU) Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.ReLU(input)
}

// Parameters returns an empty slice (ReLU has no trainable parameters).
func (r *ReLU) Parameters() []*Parameter {
	return nil
}

// Sigmoid is a sigmoid activation module.
//
// Applies the element-wise function: σ(x) = 1 / (1 + exp(-x))
type Sigmoid struct{}

// NewSigmoid creates a new Sigmoid activation module.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

// Forward applies the sigmoid activation.
func (s *Sigmoid) Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.Sigmoid(input)
}

// Parameters returns an empty slice.
func (s *Sigmoid) Parameters() []*Parameter {
	return nil
}

// Tanh is a hyperbolic tangent activation module.
type Tanh struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Forward applies tanh element-wise.
func (t *Tanh) Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.Tanh(input)
}

// Parameters returns an empty slice.
func (t *Tanh) Parameters() []*Parameter {
	return nil
}

// Softmax normalizes its input along the last dimension.
//
// When a Softmax ends a Sequential that is trained with CrossEntropyLoss,
// the loss is computed from the logits before it (see Sequential.ForwardLogits).
type Softmax struct{}

// NewSoftmax creates a new Softmax module.
func NewSoftmax() *Softmax {
	return &Softmax{}
}

// Forward applies softmax along the last dimension.
func (s *Softmax) Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.Softmax(input)
}

// Parameters returns an empty slice.
func (s *Softmax) Parameters() []*Parameter {
	return nil
}
