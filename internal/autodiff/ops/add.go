package ops

import "github.com/luma-ml/luma/internal/tensor"

// AddOp represents an element-wise addition operation: output = a + b.
//
// Backward pass:
//   - d(a+b)/da = 1, so grad_a = outputGrad
//   - d(a+b)/db = 1, so grad_b = outputGrad
//
// Note: If broadcasting was used in forward pass, gradients must be
// reduced (summed) along the broadcast dimensions to match input shapes.
type AddOp struct {
	inputs []*tensor.Tensor // [a, b]
	output *tensor.Tensor   // a + b
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.Tensor) *AddOp {
	return &AddOp{
		inputs: []*tensor.Tensor{a, b},
		output: output,
	}
}

// Kind returns KindAdd.
func (op *AddOp) Kind() Kind { return KindAdd }

// Backward computes input gradients for addition.
// Since d(a+b)/da = d(a+b)/db = 1, the gradient flows equally to both inputs.
func (op *AddOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	a, b := op.inputs[0], op.inputs[1]

	// Handle broadcasting: reduce gradient along broadcast dimensions
	gradA, err := reduceBroadcast(outputGrad, a.Shape(), backend)
	if err != nil {
		return nil, err
	}
	gradB, err := reduceBroadcast(outputGrad, b.Shape(), backend)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{gradA, gradB}, nil
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*tensor.Tensor {
	return op.inputs
}

// Output returns the output tensor a + b.
func (op *AddOp) Output() *tensor.Tensor {
	return op.output
}
