package ops

import "github.com/luma-ml/luma/internal/tensor"

// SubOp represents an element-wise subtraction operation: output = a - b.
//
// Backward pass:
//   - grad_a = outputGrad
//   - grad_b = -outputGrad
type SubOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a - b
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *tensor.Tensor) *SubOp {
	return &SubOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Kind returns KindSub.
func (op *SubOp) Kind() Kind { return KindSub }

// Backward computes input gradients for subtraction.
func (op *SubOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	gradA, err := reduceBroadcast(outputGrad, a.Shape(), backend)
	if err != nil {
		return nil, err
	}
	gradB, err := reduceBroadcast(backend.Neg(outputGrad), b.Shape(), backend)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *SubOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a - b.
func (op *SubOp) Output() *tensor.Tensor {
	return op.output
}
