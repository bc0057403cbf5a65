package ops

import "github.com/luma-ml/luma/internal/tensor"

// ReLUOp represents a ReLU (Rectified Linear Unit) activation: output = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
//
// The mask where input > 0 is captured when the operation is recorded, so
// the backward pass does not depend on the input's later contents.
type ReLUOp struct {
	input  *tensor.Tensor // x
	output *tensor.Tensor // max(0, x)
	mask   *tensor.Tensor // 1 where x > 0
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.Tensor) *ReLUOp {
	return &ReLUOp{
		input:  input,
		output: output,
		mask:   createReLUMask(input),
	}
}

// Kind returns KindReLU.
func (op *ReLUOp) Kind() Kind { return KindReLU }

// Backward computes input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	// grad_input = outputGrad * mask
	gradInput, err := backend.Mul(outputGrad, op.mask)
	if err != nil {
		return nil, err
	}
	return []*tensor.Tensor{gradInput}, nil
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *tensor.Tensor {
	return op.output
}

// createReLUMask creates a binary mask where input > 0.
func createReLUMask(input *tensor.Tensor) *tensor.Tensor {
	src := input.Data()
	return mapGrad(input, func(i int) float64 {
		if src[i] > 0 {
			return 1
		}
		return 0
	})
}
