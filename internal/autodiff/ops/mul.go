package ops

import "github.com/luma-ml/luma/internal/tensor"

// MulOp represents an element-wise multiplication: output = a * b.
//
// Backward pass:
//   - d(a*b)/da = b, so grad_a = outputGrad * b
//   - d(a*b)/db = a, so grad_b = outputGrad * a
type MulOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a * b
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.Tensor) *MulOp {
	return &MulOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Kind returns KindMul.
func (op *MulOp) Kind() Kind { return KindMul }

// Backward computes input gradients for multiplication.
func (op *MulOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	ga, err := backend.Mul(outputGrad, b)
	if err != nil {
		return nil, err
	}
	gradA, err := reduceBroadcast(ga, a.Shape(), backend)
	if err != nil {
		return nil, err
	}

	gb, err := backend.Mul(outputGrad, a)
	if err != nil {
		return nil, err
	}
	gradB, err := reduceBroadcast(gb, b.Shape(), backend)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *MulOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a * b.
func (op *MulOp) Output() *tensor.Tensor {
	return op.output
}
