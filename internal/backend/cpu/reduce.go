package cpu

import (
	"github.com/luma-ml/luma/internal/tensor"
)

// Sum adds all elements into a scalar tensor.
func (cpu *CPUBackend) Sum(t *tensor.Tensor) *tensor.Tensor {
	sum := 0.0
	for _, v := range t.Data() {
		sum += v
	}
	return tensor.Scalar(sum)
}

// Mean averages all elements into a scalar tensor.
func (cpu *CPUBackend) Mean(t *tensor.Tensor) *tensor.Tensor {
	sum := cpu.Sum(t).Data()[0]
	return tensor.Scalar(sum / float64(t.NumElements()))
}

// SumTo reduces t to shape by summing over the dimensions that broadcasting
// expanded. shape must be broadcast-compatible with t's shape and no larger.
//
// Example:
//
//	grad [3, 5] summed to bias shape [5] -> [5]
//	grad [3, 5] summed to [3, 1]        -> [3, 1]
func (cpu *CPUBackend) SumTo(t *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	src := t.Shape()
	if src.Equal(shape) {
		return t.Clone(), nil
	}

	out, _, err := tensor.BroadcastShapes(src, shape)
	if err != nil || !out.Equal(src) {
		return nil, &tensor.ShapeError{
			Op:     "sum_to",
			Shapes: []tensor.Shape{src, shape},
			Msg:    "target shape does not broadcast to source shape",
		}
	}

	result := tensor.Zeros(shape)
	dst := result.Data()
	srcStrides := src.ComputeStrides()
	dstStrides := computeBroadcastStridesForShape(shape, src)
	for i, v := range t.Data() {
		dst[computeFlatIndex(i, srcStrides, dstStrides)] += v
	}
	return result, nil
}
