package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// New wraps data as a tensor of the given shape without copying.
func New(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, &ShapeError{Op: "new", Shapes: []Shape{shape}, Msg: err.Error()}
	}
	if shape.NumElements() != len(data) {
		return nil, &ShapeError{
			Op:     "new",
			Shapes: []Shape{shape},
			Msg:    fmt.Sprintf("requires %d elements, but got %d", shape.NumElements(), len(data)),
		}
	}
	return newTensor(shape.Clone(), data), nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	buf := make([]float64, len(data))
	copy(buf, data)
	return New(buf, shape)
}

// MustFromSlice is like FromSlice but panics on error.
// Intended for tests and constants.
func MustFromSlice(data []float64, shape Shape) *Tensor {
	t, err := FromSlice(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Scalar creates a 0-D tensor holding v.
func Scalar(v float64) *Tensor {
	return newTensor(Shape{}, []float64{v})
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return newTensor(shape.Clone(), make([]float64, shape.NumElements()))
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// ZerosLike creates a zero tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape)
}

// OnesLike creates a tensor of ones with the shape of t.
func OnesLike(t *Tensor) *Tensor {
	return Ones(t.shape)
}

// Randn creates a tensor with values drawn from N(0, 1).
//
// rng is required so results are reproducible from a seed.
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = rng.NormFloat64()
	}
	return t
}

// Uniform creates a tensor with values drawn uniformly from [lo, hi).
func Uniform(shape Shape, lo, hi float64, rng *rand.Rand) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = lo + rng.Float64()*(hi-lo)
	}
	return t
}

// Stack joins equally shaped tensors along a new leading dimension.
func Stack(ts []*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, &ShapeError{Op: "stack", Msg: "no tensors"}
	}
	inner := ts[0].shape
	data := make([]float64, 0, len(ts)*inner.NumElements())
	for _, t := range ts {
		if !t.shape.Equal(inner) {
			return nil, &ShapeError{Op: "stack", Shapes: []Shape{inner, t.shape}}
		}
		data = append(data, t.data...)
	}
	shape := append(Shape{len(ts)}, inner...)
	return newTensor(shape, data), nil
}

// CheckFinite returns a NumericError if any element is NaN or infinite.
func CheckFinite(op string, t *Tensor) error {
	for i, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &NumericError{Op: op, Msg: fmt.Sprintf("non-finite value %v at index %d", v, i)}
		}
	}
	return nil
}
