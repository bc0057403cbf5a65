package nn_test

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTape() *autodiff.Tape {
	tape := autodiff.NewTape(cpu.New())
	tape.StartRecording()
	return tape
}

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// TestParameter tests Parameter creation and methods.
func TestParameter(t *testing.T) {
	data := tensor.MustFromSlice([]float64{1, 2, 3}, tensor.Shape{3})
	param := nn.NewParameter("test_param", data)

	if param.Name() != "test_param" {
		t.Errorf("Name() = %s, want test_param", param.Name())
	}
	if param.Tensor() != data {
		t.Error("Tensor() should return the original tensor")
	}
	if !data.RequiresGrad() {
		t.Error("parameter tensors must require grad")
	}
	if param.Grad() != nil {
		t.Error("Grad() should initially be nil")
	}

	require.NoError(t, param.SetGrad(tensor.MustFromSlice([]float64{0.1, 0.2, 0.3}, tensor.Shape{3})))
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, param.Grad().Data())

	require.NoError(t, param.SetGrad(tensor.MustFromSlice([]float64{1, 1, 1}, tensor.Shape{3})))
	assert.Equal(t, []float64{1, 1, 1}, param.Grad().Data(), "SetGrad overwrites")

	param.ZeroGrad()
	assert.Equal(t, []float64{0, 0, 0}, param.Grad().Data())
}

func TestXavierBounds(t *testing.T) {
	w := nn.Xavier(4, 2, tensor.Shape{2, 4}, newRNG())
	bound := 1.0 // sqrt(6 / 6)
	for _, v := range w.Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
}

func TestLinear(t *testing.T) {
	layer := nn.NewLinear(3, 2, newRNG())
	require.NoError(t, layer.Weight().Tensor().CopyFrom(
		tensor.MustFromSlice([]float64{1, 0, 0, 0, 1, 1}, tensor.Shape{2, 3})))
	require.NoError(t, layer.Bias().Tensor().CopyFrom(
		tensor.MustFromSlice([]float64{0.5, -1}, tensor.Shape{2})))

	x := tensor.MustFromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y, err := layer.Forward(newTape(), x)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float64{1.5, 4, 4.5, 10}, y.Data())
	assert.Len(t, layer.Parameters(), 2)
}

func TestLinear_Gradients(t *testing.T) {
	tape := newTape()
	layer := nn.NewLinear(2, 1, newRNG())
	x := tensor.MustFromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2})

	y, err := layer.Forward(tape, x)
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))

	// d(sum(xW^T + b))/dW = column sums of x; d/db = batch size
	assert.Equal(t, []float64{4, 6}, layer.Weight().Grad().Data())
	assert.Equal(t, []float64{2}, layer.Bias().Grad().Data())
}

func TestLinear_WrongInputShape(t *testing.T) {
	layer := nn.NewLinear(3, 2, newRNG())

	_, err := layer.Forward(newTape(), tensor.Zeros(tensor.Shape{2, 4}))
	var se *tensor.ShapeError
	assert.True(t, errors.As(err, &se))
}

func TestLinearNoBias(t *testing.T) {
	layer := nn.NewLinearNoBias(3, 2, newRNG())
	assert.Nil(t, layer.Bias())
	assert.Len(t, layer.Parameters(), 1)
	assert.NotContains(t, layer.StateDict(), "bias")
}

func TestActivations(t *testing.T) {
	x := tensor.MustFromSlice([]float64{-1, 0, 2}, tensor.Shape{1, 3})
	tape := newTape()

	relu, err := nn.NewReLU().Forward(tape, x)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2}, relu.Data())

	sig, err := nn.NewSigmoid().Forward(tape, x)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sig.Data()[1], 1e-12)

	sm, err := nn.NewSoftmax().Forward(tape, x)
	require.NoError(t, err)
	sum := 0.0
	for _, v := range sm.Data() {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	assert.Empty(t, nn.NewTanh().Parameters())
}

func TestSequential(t *testing.T) {
	rng := newRNG()
	model := nn.NewSequential(
		nn.NewLinear(4, 8, rng),
		nn.NewReLU(),
		nn.NewLinear(8, 3, rng),
		nn.NewSoftmax(),
	)

	x := tensor.Randn(tensor.Shape{5, 4}, rng)
	tape := newTape()

	probs, err := model.Forward(tape, x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 3}, probs.Shape())

	logits, err := model.ForwardLogits(tape, x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 3}, logits.Shape())
	assert.NotEqual(t, probs.Data(), logits.Data())

	assert.Len(t, model.Parameters(), 4)
	assert.Equal(t, 4*8+8+8*3+3, model.NumParams())
	assert.Len(t, model.Layers(), 4)
}

func TestSequential_ZeroGrad(t *testing.T) {
	rng := newRNG()
	model := nn.NewSequential(nn.NewLinear(2, 1, rng))
	tape := newTape()

	y, err := model.Forward(tape, tensor.Ones(tensor.Shape{1, 2}))
	require.NoError(t, err)
	loss, err := tape.Sum(y)
	require.NoError(t, err)
	require.NoError(t, tape.Backward(loss))
	require.NotNil(t, model.Parameters()[0].Grad())

	model.ZeroGrad()
	for _, p := range model.Parameters() {
		for _, v := range p.Grad().Data() {
			assert.Zero(t, v)
		}
	}
}

func TestSequential_StateDictRoundTrip(t *testing.T) {
	src := nn.NewSequential(nn.NewLinear(3, 2, rand.New(rand.NewSource(1))), nn.NewTanh(), nn.NewLinear(2, 1, rand.New(rand.NewSource(1))))
	dst := nn.NewSequential(nn.NewLinear(3, 2, rand.New(rand.NewSource(2))), nn.NewTanh(), nn.NewLinear(2, 1, rand.New(rand.NewSource(2))))

	assert.Equal(t, []string{"0.bias", "0.weight", "2.bias", "2.weight"}, src.StateKeys())

	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	for k, v := range src.StateDict() {
		assert.Equal(t, v.Data(), dst.StateDict()[k].Data(), k)
	}

	state := src.StateDict()
	delete(state, "2.bias")
	assert.Error(t, dst.LoadStateDict(state))

	bad := src.StateDict()
	bad["0.weight"] = tensor.Zeros(tensor.Shape{3, 3})
	assert.Error(t, dst.LoadStateDict(bad))
}

func TestSequential_Summary(t *testing.T) {
	model := nn.NewSequential(nn.NewLinear(4, 2, newRNG()), nn.NewReLU())
	summary := model.Summary()

	assert.Contains(t, summary, "Linear(4, 2)")
	assert.Contains(t, summary, "ReLU")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(summary), "Total params: 10"))
}

func TestBuild(t *testing.T) {
	specs := []nn.LayerSpec{
		{Kind: "dense", Params: map[string]any{"units": 8.0, "activation": "relu"}},
		{Kind: "dense", Params: map[string]any{"units": 3.0}},
		{Kind: "softmax"},
	}

	model, err := nn.Build(specs, 4, newRNG())
	require.NoError(t, err)

	layers := model.Layers()
	require.Len(t, layers, 4)
	assert.IsType(t, &nn.Linear{}, layers[0])
	assert.IsType(t, &nn.ReLU{}, layers[1])
	assert.IsType(t, &nn.Linear{}, layers[2])
	assert.IsType(t, &nn.Softmax{}, layers[3])
	assert.Equal(t, 4, layers[0].(*nn.Linear).InFeatures())
	assert.Equal(t, 8, layers[2].(*nn.Linear).InFeatures())
}

func TestBuild_Deterministic(t *testing.T) {
	specs := []nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": 2.0}}}

	a, err := nn.Build(specs, 3, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	b, err := nn.Build(specs, 3, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	assert.Equal(t, a.StateDict()["0.weight"].Data(), b.StateDict()["0.weight"].Data())
}

func TestValidateSpecs(t *testing.T) {
	tests := []struct {
		name  string
		specs []nn.LayerSpec
		param string
	}{
		{"Empty", nil, ""},
		{"UnknownKind", []nn.LayerSpec{{Kind: "conv"}}, ""},
		{"MissingUnits", []nn.LayerSpec{{Kind: "dense"}}, "units"},
		{"FractionalUnits", []nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": 2.5}}}, "units"},
		{"NegativeUnits", []nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": -1.0}}}, "units"},
		{"UnknownParam", []nn.LayerSpec{{Kind: "relu", Params: map[string]any{"units": 1.0}}}, "units"},
		{"BadActivation", []nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": 1.0, "activation": "gelu"}}}, "activation"},
		{"BiasNotBool", []nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": 1.0, "bias": 1.0}}}, "bias"},
		{"InputMismatch", []nn.LayerSpec{
			{Kind: "dense", Params: map[string]any{"units": 4.0}},
			{Kind: "dense", Params: map[string]any{"units": 1.0, "input": 3.0}},
		}, "input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nn.ValidateSpecs(tt.specs)
			var se *nn.SpecError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.Equal(t, tt.param, se.Param)
		})
	}
}

func TestInputWidth(t *testing.T) {
	n, ok := nn.InputWidth([]nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": 2.0, "input": 5.0}}})
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	_, ok = nn.InputWidth([]nn.LayerSpec{{Kind: "dense", Params: map[string]any{"units": 2.0}}})
	assert.False(t, ok)
}

func TestLossByName(t *testing.T) {
	for name, want := range map[string]string{
		"mse":           "mse",
		"MSE":           "mse",
		"bce":           "bce",
		"cross_entropy": "cross_entropy",
		"ce":            "cross_entropy",
	} {
		loss, err := nn.LossByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, loss.Name())
	}

	_, err := nn.LossByName("hinge")
	assert.Error(t, err)

	ce, _ := nn.LossByName("cross_entropy")
	assert.True(t, ce.FromLogits())
}

func TestLosses(t *testing.T) {
	tape := newTape()

	mse, err := nn.NewMSELoss().Forward(tape,
		tensor.MustFromSlice([]float64{1, 2}, tensor.Shape{2, 1}),
		tensor.MustFromSlice([]float64{0, 0}, tensor.Shape{2, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, mse.Data()[0], 1e-12)

	ce, err := nn.NewCrossEntropyLoss().Forward(tape,
		tensor.Zeros(tensor.Shape{2, 4}),
		tensor.MustFromSlice([]float64{0, 3}, tensor.Shape{2, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 1.3862943611198906, ce.Data()[0], 1e-12) // ln 4
}
