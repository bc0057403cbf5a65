package cpu

import (
	"errors"
	"testing"

	"github.com/luma-ml/luma/internal/parallel"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create test backend.
func newTestBackend() *CPUBackend {
	return New()
}

// TestCPUBackend_New tests backend creation.
func TestCPUBackend_New(t *testing.T) {
	backend := New()
	if backend == nil {
		t.Fatal("New() returned nil")
	}
	if backend.Name() != "cpu" {
		t.Errorf("Expected name 'cpu', got '%s'", backend.Name())
	}
}

// TestCPUBackend_Add tests element-wise addition.
func TestCPUBackend_Add(t *testing.T) {
	backend := newTestBackend()

	t.Run("SameShape", func(t *testing.T) {
		a := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
		b := tensor.MustFromSlice([]float64{10, 11, 12, 13, 14, 15}, tensor.Shape{2, 3})

		result, err := backend.Add(a, b)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{2, 3}, result.Shape())
		assert.Equal(t, []float64{11, 13, 15, 17, 19, 21}, result.Data())
	})

	t.Run("BroadcastRow", func(t *testing.T) {
		a := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
		b := tensor.MustFromSlice([]float64{10, 20, 30}, tensor.Shape{3})

		result, err := backend.Add(a, b)
		require.NoError(t, err)
		assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, result.Data())
	})

	t.Run("BroadcastColumn", func(t *testing.T) {
		a := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2, 1})
		b := tensor.MustFromSlice([]float64{10, 20, 30}, tensor.Shape{1, 3})

		result, err := backend.Add(a, b)
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{2, 3}, result.Shape())
		assert.Equal(t, []float64{11, 21, 31, 12, 22, 32}, result.Data())
	})

	t.Run("Scalar", func(t *testing.T) {
		a := tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3})

		result, err := backend.Add(a, tensor.Scalar(1))
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 3, 4}, result.Data())
	})

	t.Run("Incompatible", func(t *testing.T) {
		a := tensor.Zeros(tensor.Shape{3, 4})
		b := tensor.Zeros(tensor.Shape{3, 5})

		_, err := backend.Add(a, b)
		var se *tensor.ShapeError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "add", se.Op)
	})
}

func TestCPUBackend_SubMulDiv(t *testing.T) {
	backend := newTestBackend()
	a := tensor.MustFromSlice([]float64{6, 8, 10}, tensor.Shape{3})
	b := tensor.MustFromSlice([]float64{2, 4, 5}, tensor.Shape{3})

	sub, err := backend.Sub(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 5}, sub.Data())

	mul, err := backend.Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 32, 50}, mul.Data())

	div, err := backend.Div(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 2}, div.Data())
}

func TestCPUBackend_DivByZero(t *testing.T) {
	backend := newTestBackend()
	a := tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2})
	b := tensor.MustFromSlice([]float64{1, 0}, tensor.Shape{2})

	_, err := backend.Div(a, b)
	var ne *tensor.NumericError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "div", ne.Op)
}

func TestCPUBackend_MatMul(t *testing.T) {
	backend := newTestBackend()

	// [2,3] @ [3,2]
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := tensor.MustFromSlice([]float64{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	result, err := backend.MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, result.Shape())
	assert.Equal(t, []float64{58, 64, 139, 154}, result.Data())
}

func TestCPUBackend_MatMulShapeErrors(t *testing.T) {
	backend := newTestBackend()

	_, err := backend.MatMul(tensor.Zeros(tensor.Shape{2, 3}), tensor.Zeros(tensor.Shape{2, 3}))
	var se *tensor.ShapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "matmul", se.Op)

	_, err = backend.MatMul(tensor.Zeros(tensor.Shape{3}), tensor.Zeros(tensor.Shape{3, 1}))
	assert.True(t, errors.As(err, &se))
}

func TestCPUBackend_MatMulParallelMatchesSequential(t *testing.T) {
	seq := NewWithConfig(parallel.Config{Enabled: false})
	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})

	data := make([]float64, 64*16)
	for i := range data {
		data[i] = float64(i%7) - 3
	}
	a := tensor.MustFromSlice(data, tensor.Shape{64, 16})
	b := tensor.MustFromSlice(data[:16*8], tensor.Shape{16, 8})

	want, err := seq.MatMul(a, b)
	require.NoError(t, err)
	got, err := par.MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, want.Data(), got.Data())
}

func TestCPUBackend_Transpose(t *testing.T) {
	backend := newTestBackend()
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result := backend.Transpose(a)
	assert.Equal(t, tensor.Shape{3, 2}, result.Shape())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, result.Data())
}

func TestCPUBackend_Reshape(t *testing.T) {
	backend := newTestBackend()
	a := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	result, err := backend.Reshape(a, tensor.Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, result.Shape())
	assert.Equal(t, a.Data(), result.Data())

	// Result owns its data
	result.Data()[0] = 100
	assert.Equal(t, 1.0, a.Data()[0])

	_, err = backend.Reshape(a, tensor.Shape{4, 2})
	var se *tensor.ShapeError
	assert.True(t, errors.As(err, &se))
}
