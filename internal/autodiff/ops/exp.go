package ops

import "github.com/luma-ml/luma/internal/tensor"

// ExpOp represents the exponential: output = e^x.
//
// Backward pass:
//   - d(e^x)/dx = e^x, so grad_x = outputGrad * output
type ExpOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewExpOp creates a new ExpOp.
func NewExpOp(input, output *tensor.Tensor) *ExpOp {
	return &ExpOp{input: input, output: output}
}

// Kind returns KindExp.
func (op *ExpOp) Kind() Kind { return KindExp }

// Backward computes grad_x = outputGrad * e^x.
func (op *ExpOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	grad, err := backend.Mul(outputGrad, op.output)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{grad}, nil
}

// Inputs returns the input tensor.
func (op *ExpOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns e^x.
func (op *ExpOp) Output() *tensor.Tensor {
	return op.output
}
