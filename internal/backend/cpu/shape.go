package cpu

import (
	"fmt"

	"github.com/luma-ml/luma/internal/tensor"
)

// Transpose swaps the two dimensions of a 2D tensor.
// Tensors of other ranks are returned as an unchanged copy.
func (cpu *CPUBackend) Transpose(t *tensor.Tensor) *tensor.Tensor {
	shape := t.Shape()
	if len(shape) != 2 {
		return t.Clone()
	}

	rows, cols := shape[0], shape[1]
	result := tensor.Zeros(tensor.Shape{cols, rows})
	src := t.Data()
	dst := result.Data()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
	return result
}

// Reshape returns a copy of t with a new shape holding the same number of
// elements.
func (cpu *CPUBackend) Reshape(t *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	if shape.NumElements() != t.NumElements() {
		return nil, &tensor.ShapeError{
			Op:     "reshape",
			Shapes: []tensor.Shape{t.Shape(), shape},
			Msg:    fmt.Sprintf("cannot reshape %d elements into %d", t.NumElements(), shape.NumElements()),
		}
	}
	return tensor.FromSlice(t.Data(), shape)
}
