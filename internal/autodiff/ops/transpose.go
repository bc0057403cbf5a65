package ops

import "github.com/luma-ml/luma/internal/tensor"

// TransposeOp swaps the dimensions of a 2D tensor.
// The gradient is the transposed output gradient.
type TransposeOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(input, output *tensor.Tensor) *TransposeOp {
	return &TransposeOp{input: input, output: output}
}

// Kind returns KindTranspose.
func (op *TransposeOp) Kind() Kind { return KindTranspose }

// Backward computes the input gradient for transpose.
func (op *TransposeOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{backend.Transpose(outputGrad)}, nil
}

// Inputs returns the input tensor.
func (op *TransposeOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the transposed tensor.
func (op *TransposeOp) Output() *tensor.Tensor {
	return op.output
}
