package ops

import "github.com/luma-ml/luma/internal/tensor"

// DivOp represents an element-wise division: output = a / b.
//
// Backward pass:
//   - grad_a = outputGrad / b
//   - grad_b = -outputGrad * a / b²
type DivOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a / b
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.Tensor) *DivOp {
	return &DivOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Kind returns KindDiv.
func (op *DivOp) Kind() Kind { return KindDiv }

// Backward computes input gradients for division.
// The forward pass already rejected zero divisors.
func (op *DivOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	ga, err := backend.Div(outputGrad, b)
	if err != nil {
		return nil, err
	}
	gradA, err := reduceBroadcast(ga, a.Shape(), backend)
	if err != nil {
		return nil, err
	}

	// -grad * (a/b) / b
	gb, err := backend.Mul(outputGrad, op.output)
	if err != nil {
		return nil, err
	}
	gb, err = backend.Div(backend.Neg(gb), b)
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
func (op *DivOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a / b.
func (op *DivOp) Output() *tensor.Tensor {
	return op.output
}
