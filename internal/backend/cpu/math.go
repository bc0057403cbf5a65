package cpu

import (
	"fmt"
	"math"

	"github.com/luma-ml/luma/internal/tensor"
)

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(t *tensor.Tensor) *tensor.Tensor {
	return unary(t, math.Exp)
}

// Log computes the natural logarithm element-wise.
// Non-positive inputs are a NumericError.
func (cpu *CPUBackend) Log(t *tensor.Tensor) (*tensor.Tensor, error) {
	for i, v := range t.Data() {
		if v <= 0 {
			return nil, &tensor.NumericError{Op: "log", Msg: fmt.Sprintf("non-positive input %g at index %d", v, i)}
		}
	}
	return unary(t, math.Log), nil
}

// Scale multiplies every element by s.
func (cpu *CPUBackend) Scale(t *tensor.Tensor, s float64) *tensor.Tensor {
	return unary(t, func(x float64) float64 { return x * s })
}

// Neg negates every element.
func (cpu *CPUBackend) Neg(t *tensor.Tensor) *tensor.Tensor {
	return unary(t, func(x float64) float64 { return -x })
}

func unary(t *tensor.Tensor, f func(float64) float64) *tensor.Tensor {
	result := tensor.Zeros(t.Shape())
	dst := result.Data()
	for i, v := range t.Data() {
		dst[i] = f(v)
	}
	return result
}
