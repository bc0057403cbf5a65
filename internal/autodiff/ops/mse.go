package ops

import "github.com/luma-ml/luma/internal/tensor"

// MSEOp represents the mean squared error loss.
//
// Forward:
//
//	Loss = mean((pred - target)²)
//
// Backward:
//
//	∂L/∂pred   =  2 (pred - target) / n
//	∂L/∂target = -2 (pred - target) / n
type MSEOp struct {
	pred   *tensor.Tensor
	target *tensor.Tensor
	output *tensor.Tensor
	diff   *tensor.Tensor // pred - target
}

// NewMSEOp creates a new MSEOp. diff holds pred - target from the forward pass.
func NewMSEOp(pred, target, output, diff *tensor.Tensor) *MSEOp {
	return &MSEOp{pred: pred, target: target, output: output, diff: diff}
}

// Kind returns KindMSE.
func (op *MSEOp) Kind() Kind { return KindMSE }

// Backward computes gradients for predictions and targets.
func (op *MSEOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	c := 2 * scalarGrad(outputGrad) / float64(op.diff.NumElements())
	gradPred := backend.Scale(op.diff, c)
	gradTarget := backend.Neg(gradPred)
	return []*tensor.Tensor{gradPred, gradTarget}, nil
}

// Inputs returns [pred, target].
func (op *MSEOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.pred, op.target}
}

// Output returns the scalar loss.
func (op *MSEOp) Output() *tensor.Tensor {
	return op.output
}
