package ops

import "github.com/luma-ml/luma/internal/tensor"

// LogOp represents the natural logarithm: output = ln(x).
//
// Backward pass:
//   - d(ln x)/dx = 1/x, so grad_x = outputGrad / x
type LogOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewLogOp creates a new LogOp.
func NewLogOp(input, output *tensor.Tensor) *LogOp {
	return &LogOp{input: input, output: output}
}

// Kind returns KindLog.
func (op *LogOp) Kind() Kind { return KindLog }

// Backward computes grad_x = outputGrad / x.
// The forward pass guarantees x > 0.
func (op *LogOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	grad, err := backend.Div(outputGrad, op.input)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{grad}, nil
}

// Inputs returns the input tensor.
func (op *LogOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns ln(x).
func (op *LogOp) Output() *tensor.Tensor {
	return op.output
}
