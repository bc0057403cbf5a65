package ops

import "github.com/luma-ml/luma/internal/tensor"

// SigmoidOp represents the sigmoid activation: output = 1 / (1 + exp(-x)).
//
// Backward pass:
//   - d(sigmoid(x))/dx = sigmoid(x) * (1 - sigmoid(x))
//
// The forward output is reused, so no exponentials are recomputed.
type SigmoidOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.Tensor) *SigmoidOp {
	return &SigmoidOp{input: input, output: output}
}

// Kind returns KindSigmoid.
func (op *SigmoidOp) Kind() Kind { return KindSigmoid }

// Backward computes grad_x = outputGrad * s * (1 - s).
func (op *SigmoidOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	s := op.output.Data()
	g := outputGrad.Data()
	return []*tensor.Tensor{mapGrad(op.input, func(i int) float64 {
		return g[i] * s[i] * (1 - s[i])
	})}, nil
}

// Inputs returns the input tensor.
func (op *SigmoidOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns sigmoid(x).
func (op *SigmoidOp) Output() *tensor.Tensor {
	return op.output
}
