package ops

import "github.com/luma-ml/luma/internal/tensor"

// ReshapeOp changes the shape of a tensor without changing its data.
// The gradient is the output gradient reshaped back to the input shape.
type ReshapeOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.Tensor) *ReshapeOp {
	return &ReshapeOp{input: input, output: output}
}

// Kind returns KindReshape.
func (op *ReshapeOp) Kind() Kind { return KindReshape }

// Backward computes the input gradient for reshape.
func (op *ReshapeOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	grad, err := backend.Reshape(outputGrad, op.input.Shape())
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{grad}, nil
}

// Inputs returns the input tensor.
func (op *ReshapeOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the reshaped tensor.
func (op *ReshapeOp) Output() *tensor.Tensor {
	return op.output
}
