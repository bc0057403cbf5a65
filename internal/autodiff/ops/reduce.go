package ops

import "github.com/luma-ml/luma/internal/tensor"

// SumOp reduces all elements to a scalar: output = Σ x.
// Every input element receives the (scalar) output gradient.
type SumOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.Tensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Kind returns KindSum.
func (op *SumOp) Kind() Kind { return KindSum }

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{tensor.Full(op.input.Shape(), scalarGrad(outputGrad))}, nil
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.Tensor {
	return op.output
}

// MeanOp reduces all elements to their mean: output = Σ x / n.
// Every input element receives outputGrad / n.
type MeanOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(input, output *tensor.Tensor) *MeanOp {
	return &MeanOp{input: input, output: output}
}

// Kind returns KindMean.
func (op *MeanOp) Kind() Kind { return KindMean }

// Backward distributes the scalar gradient evenly over the input.
func (op *MeanOp) Backward(outputGrad *tensor.Tensor, _ tensor.Backend) ([]*tensor.Tensor, error) {
	n := float64(op.input.NumElements())
	return []*tensor.Tensor{tensor.Full(op.input.Shape(), scalarGrad(outputGrad)/n)}, nil
}

// Inputs returns the input tensor.
func (op *MeanOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the scalar mean.
func (op *MeanOp) Output() *tensor.Tensor {
	return op.output
}

// ScaleOp multiplies a tensor by a constant: output = s * x.
type ScaleOp struct {
	input  *tensor.Tensor
	output *tensor.Tensor
	factor float64
}

// NewScaleOp creates a new ScaleOp.
func NewScaleOp(input, output *tensor.Tensor, factor float64) *ScaleOp {
	return &ScaleOp{input: input, output: output, factor: factor}
}

// Kind returns KindScale.
func (op *ScaleOp) Kind() Kind { return KindScale }

// Backward computes grad_x = s * outputGrad.
func (op *ScaleOp) Backward(outputGrad *tensor.Tensor, backend tensor.Backend) ([]*tensor.Tensor, error) {
	return []*tensor.Tensor{backend.Scale(outputGrad, op.factor)}, nil
}

// Inputs returns the input tensor.
func (op *ScaleOp) Inputs() []*tensor.Tensor {
	return []*tensor.Tensor{op.input}
}

// Output returns the scaled tensor.
func (op *ScaleOp) Output() *tensor.Tensor {
	return op.output
}
