package optim_test

import (
	"errors"
	"math"
	"testing"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newParam creates a parameter with the given values and gradient.
// A nil grad leaves the gradient buffer unallocated.
func newParam(t *testing.T, values, grad []float64) *nn.Parameter {
	t.Helper()
	shape := tensor.Shape{len(values)}
	p := nn.NewParameter("x", tensor.MustFromSlice(values, shape))
	if grad != nil {
		require.NoError(t, p.SetGrad(tensor.MustFromSlice(grad, shape)))
	}
	return p
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	param := newParam(t, []float64{2.0}, []float64{1.0})
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})

	require.NoError(t, optimizer.Step())

	// Expected: x_new = x_old - lr * grad = 2.0 - 0.1 * 1.0 = 1.9
	assert.InDelta(t, 1.9, param.Tensor().Data()[0], 1e-12)
}

// TestSGD_WithMomentum tests SGD with momentum over two steps.
func TestSGD_WithMomentum(t *testing.T) {
	param := newParam(t, []float64{2.0}, []float64{1.0})
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: v = -0.1, x = 1.9
	require.NoError(t, optimizer.Step())
	assert.InDelta(t, 1.9, param.Tensor().Data()[0], 1e-12)

	// Step 2: v = 0.9 * -0.1 - 0.1 = -0.19, x = 1.71
	require.NoError(t, optimizer.Step())
	assert.InDelta(t, 1.71, param.Tensor().Data()[0], 1e-12)
	assert.InDelta(t, -0.19, optimizer.StateDict()["velocity.0"].Data()[0], 1e-12)
}

func TestSGD_Defaults(t *testing.T) {
	optimizer := optim.NewSGD(nil, optim.SGDConfig{})
	assert.Equal(t, 0.01, optimizer.LR())
	assert.Equal(t, 0.0, optimizer.Momentum())
	require.NoError(t, optimizer.Step())
}

func TestSGD_MissingGradIsZero(t *testing.T) {
	param := newParam(t, []float64{1, 2}, nil)
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.5})

	require.NoError(t, optimizer.Step())
	assert.Equal(t, []float64{1, 2}, param.Tensor().Data())
}

func TestSGD_MomentumContinuesWithoutGrad(t *testing.T) {
	param := newParam(t, []float64{1}, []float64{1})
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.5})

	require.NoError(t, optimizer.Step()) // v = -0.1, x = 0.9
	optimizer.ZeroGrad()
	require.NoError(t, optimizer.Step()) // v = -0.05, x = 0.85
	assert.InDelta(t, 0.85, param.Tensor().Data()[0], 1e-12)
}

func TestSGD_SetLR(t *testing.T) {
	param := newParam(t, []float64{1}, []float64{1})
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})
	optimizer.SetLR(0.5)
	assert.Equal(t, 0.5, optimizer.LR())

	require.NoError(t, optimizer.Step())
	assert.InDelta(t, 0.5, param.Tensor().Data()[0], 1e-12)
}

func TestSGD_NonFiniteUpdate(t *testing.T) {
	param := newParam(t, []float64{1}, []float64{math.Inf(1)})
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})

	err := optimizer.Step()
	require.Error(t, err)
	var numErr *tensor.NumericError
	assert.True(t, errors.As(err, &numErr))
}

func TestSGD_StateDictRoundTrip(t *testing.T) {
	param := newParam(t, []float64{1, 2}, []float64{1, -1})
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, optimizer.Step())

	state := optimizer.StateDict()
	require.Contains(t, state, "velocity.0")

	other := optim.NewSGD([]*nn.Parameter{newParam(t, []float64{0, 0}, nil)}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, other.LoadStateDict(state))
	assert.Equal(t, state["velocity.0"].Data(), other.StateDict()["velocity.0"].Data())

	bad := map[string]*tensor.Tensor{"velocity.0": tensor.Zeros(tensor.Shape{3})}
	assert.Error(t, other.LoadStateDict(bad))
}

// TestAdam_FirstStep checks that the bias-corrected first step moves each
// parameter by lr in the direction opposite to its gradient.
func TestAdam_FirstStep(t *testing.T) {
	param := newParam(t, []float64{1.0, -1.0}, []float64{2.0, -0.5})
	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.1})

	require.NoError(t, optimizer.Step())

	assert.InDelta(t, 0.9, param.Tensor().Data()[0], 1e-6)
	assert.InDelta(t, -0.9, param.Tensor().Data()[1], 1e-6)
	assert.Equal(t, 1, optimizer.Steps())
}

func TestAdam_Defaults(t *testing.T) {
	optimizer := optim.NewAdam(nil, optim.AdamConfig{})
	assert.Equal(t, 0.001, optimizer.LR())
}

func TestAdam_MissingGradIsZero(t *testing.T) {
	param := newParam(t, []float64{3}, nil)
	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.1})

	require.NoError(t, optimizer.Step())
	assert.Equal(t, []float64{3}, param.Tensor().Data())
}

func TestAdam_StateDictRoundTrip(t *testing.T) {
	param := newParam(t, []float64{1, 2}, []float64{0.5, -0.5})
	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.01})
	require.NoError(t, optimizer.Step())
	require.NoError(t, optimizer.Step())

	state := optimizer.StateDict()
	for _, key := range []string{"m.0", "v.0", "step"} {
		assert.Contains(t, state, key)
	}

	other := optim.NewAdam([]*nn.Parameter{newParam(t, []float64{0, 0}, nil)}, optim.AdamConfig{LR: 0.01})
	require.NoError(t, other.LoadStateDict(state))
	assert.Equal(t, 2, other.Steps())
	assert.Equal(t, state["m.0"].Data(), other.StateDict()["m.0"].Data())
	assert.Equal(t, state["v.0"].Data(), other.StateDict()["v.0"].Data())
}

// minimize runs steps of optimizer on loss = sum(x * x) and returns the
// final loss.
func minimize(t *testing.T, param *nn.Parameter, optimizer optim.Optimizer, steps int) float64 {
	t.Helper()
	tape := autodiff.NewTape(cpu.New())
	tape.StartRecording()

	var last float64
	for range steps {
		tape.Reset()
		x := param.Tensor()
		sq, err := tape.Mul(x, x)
		require.NoError(t, err)
		loss, err := tape.Sum(sq)
		require.NoError(t, err)

		optimizer.ZeroGrad()
		require.NoError(t, tape.Backward(loss))
		require.NoError(t, optimizer.Step())

		last, err = loss.Item()
		require.NoError(t, err)
	}
	return last
}

func TestSGD_MinimizesQuadratic(t *testing.T) {
	param := newParam(t, []float64{5, -3}, nil)
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})

	minimize(t, param, optimizer, 50)

	// x <- x * (1 - 2 * lr) each step.
	assert.InDelta(t, 5*math.Pow(0.8, 50), param.Tensor().Data()[0], 1e-9)
	assert.InDelta(t, -3*math.Pow(0.8, 50), param.Tensor().Data()[1], 1e-9)
}

func TestAdam_MinimizesQuadratic(t *testing.T) {
	param := newParam(t, []float64{5, -3}, nil)
	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.1})

	final := minimize(t, param, optimizer, 200)
	assert.Less(t, final, 1.0)
}

func TestSchedulers(t *testing.T) {
	tests := []struct {
		name  string
		sched optim.Scheduler
		epoch int
		want  float64
	}{
		{"constant", optim.Constant{}, 7, 0.1},
		{"step before decay", optim.StepDecay{StepSize: 10, Gamma: 0.5}, 9, 0.1},
		{"step after decay", optim.StepDecay{StepSize: 10, Gamma: 0.5}, 20, 0.025},
		{"step zero size", optim.StepDecay{}, 5, 0.1},
		{"exponential", optim.ExponentialDecay{Gamma: 0.5}, 2, 0.025},
		{"cosine start", optim.CosineAnnealing{TMax: 10, EtaMin: 0.01}, 0, 0.1},
		{"cosine half", optim.CosineAnnealing{TMax: 10, EtaMin: 0}, 5, 0.05},
		{"cosine past end", optim.CosineAnnealing{TMax: 10, EtaMin: 0.01}, 12, 0.01},
		{"time", optim.TimeDecay{Decay: 1}, 3, 0.025},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.sched.LR(tt.epoch, 0.1), 1e-12)
		})
	}
}

func TestSchedulerByName(t *testing.T) {
	s, err := optim.SchedulerByName("", optim.SchedulerConfig{})
	require.NoError(t, err)
	assert.Equal(t, optim.Constant{}, s)

	s, err = optim.SchedulerByName("step", optim.SchedulerConfig{})
	require.NoError(t, err)
	assert.Equal(t, optim.StepDecay{StepSize: 10, Gamma: 0.1}, s)

	s, err = optim.SchedulerByName("time", optim.SchedulerConfig{Decay: 0.5})
	require.NoError(t, err)
	assert.Equal(t, optim.TimeDecay{Decay: 0.5}, s)

	_, err = optim.SchedulerByName("cosine", optim.SchedulerConfig{})
	assert.Error(t, err)

	_, err = optim.SchedulerByName("warmup", optim.SchedulerConfig{})
	assert.Error(t, err)
}

func TestReduceOnPlateau(t *testing.T) {
	r := optim.NewReduceOnPlateau(2, 0.5, 0.02)
	assert.InDelta(t, 0.1, r.LR(0, 0.1), 1e-12)

	var lrs []float64
	for epoch, loss := range []float64{1.0, 0.8, 0.9, 0.85, 0.7, 0.7, 0.7, 0.7, 0.7, 0.7} {
		r.Observe(epoch, loss)
		lrs = append(lrs, r.LR(epoch+1, 0.1))
	}
	// Reduced after two epochs without improvement, then floored at MinLR.
	assert.InDeltaSlice(t, []float64{0.1, 0.1, 0.1, 0.05, 0.05, 0.05, 0.025, 0.025, 0.02, 0.02}, lrs, 1e-12)

	r.Reset()
	assert.InDelta(t, 0.3, r.LR(0, 0.3), 1e-12)
}

func TestCyclicLR(t *testing.T) {
	triangular := optim.CyclicLR{MaxLR: 1.0, StepSize: 2, Mode: optim.Triangular}
	triangular2 := optim.CyclicLR{MaxLR: 1.0, StepSize: 2, Mode: optim.Triangular2}
	expRange := optim.CyclicLR{MaxLR: 1.0, StepSize: 2, Mode: optim.ExpRange, Gamma: 0.5}

	var tri, tri2, exp []float64
	for step := range 7 {
		tri = append(tri, triangular.BatchLR(step, 0))
		tri2 = append(tri2, triangular2.BatchLR(step, 0))
		exp = append(exp, expRange.BatchLR(step, 0))
	}
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5, 0, 0.5, 1}, tri, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5, 0, 0.25, 0.5}, tri2, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.25, 0.0625, 0, 0.5 / 32, 1.0 / 64}, exp, 1e-12)

	assert.InDelta(t, 0.1, triangular.LR(3, 0.1), 1e-12)
	assert.InDelta(t, 0.55, triangular.BatchLR(1, 0.1), 1e-12)
}

func TestSchedulerByName_PlateauAndCyclic(t *testing.T) {
	s, err := optim.SchedulerByName("plateau", optim.SchedulerConfig{})
	require.NoError(t, err)
	plateau, ok := s.(*optim.ReduceOnPlateau)
	require.True(t, ok)
	assert.Equal(t, 5, plateau.Patience)
	assert.InDelta(t, 0.1, plateau.Factor, 1e-12)
	_, ok = s.(optim.LossScheduler)
	assert.True(t, ok)

	_, err = optim.SchedulerByName("plateau", optim.SchedulerConfig{Factor: 2})
	assert.Error(t, err)

	s, err = optim.SchedulerByName("cyclic", optim.SchedulerConfig{MaxLR: 0.5, Mode: "triangular2"})
	require.NoError(t, err)
	assert.Equal(t, optim.CyclicLR{MaxLR: 0.5, StepSize: 10, Mode: optim.Triangular2, Gamma: 0.999}, s)
	_, ok = s.(optim.BatchScheduler)
	assert.True(t, ok)

	_, err = optim.SchedulerByName("cyclic", optim.SchedulerConfig{})
	assert.Error(t, err)
	_, err = optim.SchedulerByName("cyclic", optim.SchedulerConfig{MaxLR: 1, Mode: "sawtooth"})
	assert.Error(t, err)
}
