// Package cpu implements the pure Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/luma-ml/luma/internal/parallel"
	"github.com/luma-ml/luma/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	parallel parallel.Config
}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		parallel: parallel.DefaultConfig(),
	}
}

// NewWithConfig creates a CPU backend with explicit parallelism settings
// for row-parallel kernels such as MatMul.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{parallel: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "cpu"
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return binary("add", a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return binary("sub", a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	return binary("mul", a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
// A zero divisor is a NumericError.
func (cpu *CPUBackend) Div(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	for i, v := range b.Data() {
		if v == 0 {
			return nil, &tensor.NumericError{Op: "div", Msg: fmt.Sprintf("division by zero (divisor index %d)", i)}
		}
	}
	return binary("div", a, b, func(x, y float64) float64 { return x / y })
}

// binary applies f element-wise, broadcasting a and b to a common shape.
func binary(op string, a, b *tensor.Tensor, f func(x, y float64) float64) (*tensor.Tensor, error) {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		if se, ok := err.(*tensor.ShapeError); ok {
			se.Op = op
		}
		return nil, err
	}

	result := tensor.Zeros(outShape)
	out := result.Data()
	ad, bd := a.Data(), b.Data()

	if !needsBroadcast {
		// Fast path: identical shapes
		for i := range out {
			out[i] = f(ad[i], bd[i])
		}
		return result, nil
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)
	for i := range out {
		out[i] = f(ad[computeFlatIndex(i, outStrides, aStrides)], bd[computeFlatIndex(i, outStrides, bStrides)])
	}
	return result, nil
}
