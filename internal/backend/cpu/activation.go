package cpu

import (
	"math"

	"github.com/luma-ml/luma/internal/tensor"
)

// ReLU computes max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(t *tensor.Tensor) *tensor.Tensor {
	return unary(t, func(x float64) float64 {
		if x > 0 {
			return x
		}
		return 0
	})
}

// Sigmoid computes 1 / (1 + exp(-x)) element-wise.
// Large negative inputs take the exp(x) / (1 + exp(x)) form so the result
// never overflows.
func (cpu *CPUBackend) Sigmoid(t *tensor.Tensor) *tensor.Tensor {
	return unary(t, func(x float64) float64 {
		if x >= 0 {
			return 1 / (1 + math.Exp(-x))
		}
		e := math.Exp(x)
		return e / (1 + e)
	})
}

// Tanh computes the hyperbolic tangent element-wise.
func (cpu *CPUBackend) Tanh(t *tensor.Tensor) *tensor.Tensor {
	return unary(t, math.Tanh)
}

// Softmax computes softmax along the last dimension.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)).
// A scalar input yields 1.
func (cpu *CPUBackend) Softmax(t *tensor.Tensor) *tensor.Tensor {
	shape := t.Shape()
	result := tensor.Zeros(shape)
	src := t.Data()
	dst := result.Data()

	dimSize := 1
	if len(shape) > 0 {
		dimSize = shape[len(shape)-1]
	}

	for base := 0; base < len(src); base += dimSize {
		row := src[base : base+dimSize]
		out := dst[base : base+dimSize]

		// Find max for numerical stability
		maxVal := math.Inf(-1)
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}

		sum := 0.0
		for i, v := range row {
			out[i] = math.Exp(v - maxVal)
			sum += out[i]
		}
		for i := range out {
			out[i] /= sum
		}
	}
	return result
}
