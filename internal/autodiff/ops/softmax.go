package ops

import "github.com/luma-ml/luma/internal/tensor"

// SoftmaxOp represents softmax along the last dimension.
//
// Backward pass (per row, s = softmax(x)):
//
//	grad_x[i] = s[i] * (grad[i] - Σ_j grad[j] * s[j])
//
// The softmax output is cached from the forward pass.
type SoftmaxOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewSoftmaxOp creates a new SoftmaxOp.
func NewSoftmaxOp(input, output *tensor.Tensor) *SoftmaxOp {
	return &SoftmaxOp{input: input, output: output}
}

// Kind returns KindSoftmax.
func (op *SoftmaxOp) Kind() Kind { return KindSoftmax }

// Backward computes the softmax Jacobian-vector product row by row.
func (op *SoftmaxOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	shape := op.output.Shape()
	dimSize := 1
	if len(shape) > 0 {
		dimSize = shape[len(shape)-1]
	}

	s := op.output.Data()
	g := outputGrad.Data()
	grad := tensor.ZerosLike(op.input)
	dst := grad.Data()

	for base := 0; base < len(s); base += dimSize {
		dot := 0.0
		for j := base; j < base+dimSize; j++ {
			dot += g[j] * s[j]
		}
		for j := base; j < base+dimSize; j++ {
			dst[j] = s[j] * (g[j] - dot)
		}
	}

	return []*tensor.Tensor{grad}, nil
}

// Inputs returns the input tensor.
func (op *SoftmaxOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns softmax(x).
func (op *SoftmaxOp) Output() *tensor.Tensor {
	return op.output
}
