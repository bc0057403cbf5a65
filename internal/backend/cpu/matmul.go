package cpu

import (
	"fmt"

	"github.com/luma-ml/luma/internal/parallel"
	"github.com/luma-ml/luma/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N)
//
// Rows of the output are computed in parallel when the backend's
// parallel config allows it. Each output element is a sequential sum over
// K, so the result does not depend on the worker count.
func (cpu *CPUBackend) MatMul(a, b *tensor.Tensor) (*tensor.Tensor, error) {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, &tensor.ShapeError{
			Op:     "matmul",
			Shapes: []tensor.Shape{aShape, bShape},
			Msg:    fmt.Sprintf("only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)),
		}
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		return nil, &tensor.ShapeError{
			Op:     "matmul",
			Shapes: []tensor.Shape{aShape, bShape},
			Msg:    fmt.Sprintf("inner dimensions differ (%d vs %d)", k, kAlt),
		}
	}

	result := tensor.Zeros(tensor.Shape{m, n})
	matmulFloat64(result.Data(), a.Data(), b.Data(), m, k, n, cpu.parallel)
	return result, nil
}

// matmulFloat64 performs naive matrix multiplication.
// C[i,j] = sum_k A[i,k] * B[k,j]
func matmulFloat64(c, a, b []float64, m, k, n int, cfg parallel.Config) {
	parallel.For(m, func(i int) {
		row := a[i*k : (i+1)*k]
		for j := 0; j < n; j++ {
			sum := 0.0
			for kIdx, av := range row {
				sum += av * b[kIdx*n+j]
			}
			c[i*n+j] = sum
		}
	}, cfg)
}
