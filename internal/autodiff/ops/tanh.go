package ops

import "github.com/luma-ml/luma/internal/tensor"

// TanhOp represents the hyperbolic tangent: output = tanh(x).
//
// Backward pass:
//   - d(tanh(x))/dx = 1 - tanh²(x)
type TanhOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.Tensor) *TanhOp {
	return &TanhOp{input: input, output: output}
}

// Kind returns KindTanh.
func (op *TanhOp) Kind() Kind { return KindTanh }

// Backward computes grad_x = outputGrad * (1 - y²).
func (op *TanhOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	y := op.output.Data()
	g := outputGrad.Data()
	return []*tensor.Tensor{mapGrad(op.input, func(i int) float64 {
		return g[i] * (1 - y[i]*y[i])
	})}, nil
}

// Inputs returns the input tensor.
func (op *TanhOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns tanh(x).
func (op *TanhOp) Output() *tensor.Tensor {
	return op.output
}
