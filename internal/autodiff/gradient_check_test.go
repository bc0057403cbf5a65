package autodiff

import (
	"math/rand"
	"testing"

	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/require"
)

const (
	gradCheckEps = 1e-6
	gradCheckTol = 1e-5
)

// lossFn builds a scalar loss from inputs on the given tape.
type lossFn func(tape *Tape, inputs []*tensor.Tensor) (*tensor.Tensor, error)

// checkGradients compares analytic gradients with central finite differences.
func checkGradients(t *testing.T, f lossFn, inputs ...*tensor.Tensor) {
	t.Helper()

	for _, in := range inputs {
		in.RequireGrad()
	}
	tape := NewTape(cpu.New())
	tape.StartRecording()
	loss, err := f(tape, inputs)
	require.NoError(t, err)
	grads, err := tape.Gradients(loss)
	require.NoError(t, err)

	eval := func() float64 {
		plain := NewTape(cpu.New())
		out, err := f(plain, inputs)
		require.NoError(t, err)
		return out.Data()[0]
	}

	for k, in := range inputs {
		analytic := grads.Get(in)
		require.NotNil(t, analytic, "input %d has no gradient", k)
		data := in.Data()
		for i := range data {
			orig := data[i]
			data[i] = orig + gradCheckEps
			plus := eval()
			data[i] = orig - gradCheckEps
			minus := eval()
			data[i] = orig

			numeric := (plus - minus) / (2 * gradCheckEps)
			require.InDelta(t, numeric, analytic.Data()[i], gradCheckTol, "input %d element %d", k, i)
		}
	}
}

func randTensor(rng *rand.Rand, shape tensor.Shape) *tensor.Tensor {
	return tensor.Randn(shape, rng)
}

func TestGradCheck_MatMul(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	a := randTensor(rng, tensor.Shape{3, 4})
	b := randTensor(rng, tensor.Shape{4, 2})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		y, err := tape.MatMul(in[0], in[1])
		if err != nil {
			return nil, err
		}
		return tape.Sum(y)
	}, a, b)
}

func TestGradCheck_LinearLayer(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randTensor(rng, tensor.Shape{5, 3})
	w := randTensor(rng, tensor.Shape{2, 3})
	b := randTensor(rng, tensor.Shape{2})
	target := randTensor(rng, tensor.Shape{5, 2})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		wt, err := tape.Transpose(in[1])
		if err != nil {
			return nil, err
		}
		y, err := tape.MatMul(in[0], wt)
		if err != nil {
			return nil, err
		}
		y, err = tape.Add(y, in[2])
		if err != nil {
			return nil, err
		}
		return tape.MSE(y, target)
	}, x, w, b)
}

func TestGradCheck_Elementwise(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := randTensor(rng, tensor.Shape{2, 3})
	b := tensor.Uniform(tensor.Shape{3}, 0.5, 2, rng)

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		q, err := tape.Div(in[0], in[1])
		if err != nil {
			return nil, err
		}
		s, err := tape.Sigmoid(q)
		if err != nil {
			return nil, err
		}
		th, err := tape.Tanh(in[0])
		if err != nil {
			return nil, err
		}
		d, err := tape.Sub(s, th)
		if err != nil {
			return nil, err
		}
		e, err := tape.Exp(d)
		if err != nil {
			return nil, err
		}
		l, err := tape.Log(in[1])
		if err != nil {
			return nil, err
		}
		y, err := tape.Mul(e, l)
		if err != nil {
			return nil, err
		}
		return tape.Mean(y)
	}, a, b)
}

func TestGradCheck_Softmax(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x := randTensor(rng, tensor.Shape{2, 4})
	w := randTensor(rng, tensor.Shape{2, 4})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		s, err := tape.Softmax(in[0])
		if err != nil {
			return nil, err
		}
		y, err := tape.Mul(s, w)
		if err != nil {
			return nil, err
		}
		return tape.Sum(y)
	}, x)
}

func TestGradCheck_ReshapeScale(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := randTensor(rng, tensor.Shape{2, 3})
	w := randTensor(rng, tensor.Shape{3, 2})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		r, err := tape.Reshape(in[0], tensor.Shape{3, 2})
		if err != nil {
			return nil, err
		}
		r, err = tape.Scale(r, -1.5)
		if err != nil {
			return nil, err
		}
		y, err := tape.Mul(r, w)
		if err != nil {
			return nil, err
		}
		return tape.Sum(y)
	}, x)
}

func TestGradCheck_ReLU(t *testing.T) {
	// Values kept away from the kink at 0.
	x := tensor.MustFromSlice([]float64{-1.5, -0.3, 0.4, 2.2}, tensor.Shape{4})
	w := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{4})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		r, err := tape.ReLU(in[0])
		if err != nil {
			return nil, err
		}
		y, err := tape.Mul(r, w)
		if err != nil {
			return nil, err
		}
		return tape.Sum(y)
	}, x)
}

func TestGradCheck_BCE(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	p := tensor.Uniform(tensor.Shape{6}, 0.1, 0.9, rng)
	y := tensor.MustFromSlice([]float64{0, 1, 1, 0, 1, 0}, tensor.Shape{6})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		return tape.BCE(in[0], y)
	}, p)
}

func TestGradCheck_SoftmaxCrossEntropy(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	logits := randTensor(rng, tensor.Shape{4, 3})
	labels := tensor.MustFromSlice([]float64{0, 2, 1, 2}, tensor.Shape{4})

	checkGradients(t, func(tape *Tape, in []*tensor.Tensor) (*tensor.Tensor, error) {
		return tape.SoftmaxCrossEntropy(in[0], labels)
	}, logits)
}
