package ops

import (
	"math"

	"github.com/luma-ml/luma/internal/tensor"
)

// BCEOp represents the binary cross-entropy loss over probabilities.
//
// Forward (p clamped to [ε, 1-ε]):
//
//	Loss = -mean(t·log(p) + (1-t)·log(1-p))
//
// Backward:
//
//	∂L/∂p = (p - t) / (p (1 - p)) / n
//	∂L/∂t = -(log(p) - log(1-p)) / n
type BCEOp struct {
	pred    *tensor.Tensor
	target  *tensor.Tensor
	output  *tensor.Tensor
	clamped *tensor.Tensor // predictions after clamping
}

// NewBCEOp creates a new BCEOp. clamped holds the clamped predictions used
// by the forward pass.
func NewBCEOp(pred, target, output, clamped *tensor.Tensor) *BCEOp {
	return &BCEOp{pred: pred, target: target, output: output, clamped: clamped}
}

// Kind returns KindBCE.
func (op *BCEOp) Kind() Kind { return KindBCE }

// Backward computes gradients for predictions and targets.
func (op *BCEOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	p := op.clamped.Data()
	t := op.target.Data()
	c := scalarGrad(outputGrad) / float64(len(p))

	gradPred := mapGrad(op.pred, func(i int) float64 {
		return c * (p[i] - t[i]) / (p[i] * (1 - p[i]))
	})
	gradTarget := mapGrad(op.target, func(i int) float64 {
		return -c * (math.Log(p[i]) - math.Log(1-p[i]))
	})
	return []*tensor.Tensor{gradPred, gradTarget}, nil
}

// Inputs returns [pred, target].
func (op *BCEOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.pred, op.target}
}

// Output returns the scalar loss.
func (op *BCEOp) Output() *tensor.Tensor {
	return op.output
}
