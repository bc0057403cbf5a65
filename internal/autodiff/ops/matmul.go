package ops

import "github.com/luma-ml/luma/internal/tensor"

// MatMulOp represents matrix multiplication: output = a @ b.
//
// Backward pass:
//   - grad_a = outputGrad @ b^T
//   - grad_b = a^T @ outputGrad
type MatMulOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a @ b
}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.Tensor) *MatMulOp {
	return &MatMulOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Kind returns KindMatMul.
func (op *MatMulOp) Kind() Kind { return KindMatMul }

// Backward computes input gradients for matrix multiplication.
func (op *MatMulOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	gradA, err := backend.MatMul(outputGrad, backend.Transpose(b))
	if err != nil {
		return nil, err
	}
	gradB, err := backend.MatMul(backend.Transpose(a), outputGrad)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *MatMulOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a @ b.
func (op *MatMulOp) Output() *tensor.Tensor {
	return op.output
}
