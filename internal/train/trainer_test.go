package train

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/export"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineDataset returns samples of y = 2x + 1 for x evenly spaced in [-1, 1].
func lineDataset(t *testing.T, n int) *data.InMemory {
	t.Helper()
	features := make([][]float64, n)
	labels := make([][]float64, n)
	for i := range n {
		x := -1 + 2*float64(i)/float64(n-1)
		features[i] = []float64{x}
		labels[i] = []float64{2*x + 1}
	}
	ds, err := data.NewInMemory(features, labels)
	require.NoError(t, err)
	return ds
}

func linearModel(seed int64) (*nn.Sequential, *nn.Linear) {
	linear := nn.NewLinear(1, 1, rand.New(rand.NewSource(seed)))
	return nn.NewSequential(linear), linear
}

// TestFit_LinearRegression trains y = wx + b with full-batch SGD: the loss
// must decrease every epoch and the parameters reach the exact fit.
func TestFit_LinearRegression(t *testing.T) {
	ds := lineDataset(t, 5)
	model, linear := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	cfg := DefaultConfig()
	cfg.Epochs = 100
	cfg.BatchSize = ds.Size()
	cfg.Shuffle = false
	trainer := New(model, nn.NewMSELoss(), opt, cfg)

	history, err := trainer.Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, Idle, trainer.State())
	require.Equal(t, 100, history.Epochs())

	for i := 1; i < len(history.Loss); i++ {
		assert.LessOrEqual(t, history.Loss[i], history.Loss[i-1]+1e-12, "epoch %d", i)
	}
	assert.Less(t, history.FinalLoss(), 1e-4)
	assert.InDelta(t, 2.0, linear.Weight().Tensor().Data()[0], 1e-2)
	assert.InDelta(t, 1.0, linear.Bias().Tensor().Data()[0], 1e-2)
}

func TestFit_MiniBatchShuffled(t *testing.T) {
	ds := lineDataset(t, 20)
	model, linear := linearModel(2)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1, Momentum: 0.5})

	cfg := DefaultConfig()
	cfg.Epochs = 60
	cfg.BatchSize = 6 // last batch holds 2 samples
	cfg.Seed = 3
	trainer := New(model, nn.NewMSELoss(), opt, cfg)

	history, err := trainer.Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.Less(t, history.FinalLoss(), history.Loss[0])
	assert.InDelta(t, 2.0, linear.Weight().Tensor().Data()[0], 0.05)
	assert.Equal(t, 3, trainer.Batch())
	assert.Equal(t, 59, trainer.Epoch())
}

// TestFit_ParallelMatchesSerial checks that sharded gradient computation
// produces the same parameters as the serial loop.
func TestFit_ParallelMatchesSerial(t *testing.T) {
	ds := lineDataset(t, 14)

	run := func(workers int) []float64 {
		model, linear := linearModel(5)
		opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.05})
		cfg := DefaultConfig()
		cfg.Epochs = 8
		cfg.BatchSize = 5
		cfg.Seed = 11
		cfg.Workers = workers
		_, err := New(model, nn.NewMSELoss(), opt, cfg).Fit(context.Background(), ds)
		require.NoError(t, err)
		return []float64{linear.Weight().Tensor().Data()[0], linear.Bias().Tensor().Data()[0]}
	}

	serial := run(1)
	assert.InDeltaSlice(t, serial, run(3), 1e-9)
	assert.InDeltaSlice(t, serial, run(4), 1e-9)
}

// cancelAt cancels training after the given batch of the first epoch.
type cancelAt struct {
	BaseCallback
	batch  int
	cancel context.CancelFunc
}

func (c *cancelAt) OnBatchEnd(_ context.Context, epoch, batch int, _ float64) {
	if epoch == 0 && batch == c.batch {
		c.cancel()
	}
}

func TestFit_Cancellation(t *testing.T) {
	ds := lineDataset(t, 10)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Epochs = 5
	cfg.BatchSize = 2
	trainer := New(model, nn.NewMSELoss(), opt, cfg, &cancelAt{batch: 2, cancel: cancel})

	history, err := trainer.Fit(ctx, ds)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, Aborted, trainer.State())
	assert.Equal(t, 0, history.Epochs())
	assert.Equal(t, 2, trainer.Batch())
}

func TestFit_NonFiniteLoss(t *testing.T) {
	ds, err := data.NewInMemory([][]float64{{1}, {2}}, [][]float64{{math.NaN()}, {1}})
	require.NoError(t, err)
	model, linear := linearModel(1)
	before := linear.Weight().Tensor().Clone().Data()
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	cfg := DefaultConfig()
	cfg.Epochs = 3
	trainer := New(model, nn.NewMSELoss(), opt, cfg)

	_, err = trainer.Fit(context.Background(), ds)
	require.Error(t, err)
	var numErr *tensor.NumericError
	assert.True(t, errors.As(err, &numErr))
	assert.Equal(t, Failed, trainer.State())
	assert.Equal(t, before, linear.Weight().Tensor().Data())
}

func TestFit_Unlabeled(t *testing.T) {
	ds, err := data.NewInMemory([][]float64{{1}, {2}}, nil)
	require.NoError(t, err)
	model, _ := linearModel(1)
	trainer := New(model, nn.NewMSELoss(), optim.NewSGD(model.Parameters(), optim.SGDConfig{}), DefaultConfig())

	_, err = trainer.Fit(context.Background(), ds)
	assert.Error(t, err)
	assert.Equal(t, Failed, trainer.State())
}

func TestFit_EarlyStopping(t *testing.T) {
	ds := lineDataset(t, 5)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	cfg := DefaultConfig()
	cfg.Epochs = 50
	// No improvement can exceed MinDelta after the first epoch.
	trainer := New(model, nn.NewMSELoss(), opt, cfg, NewEarlyStopping(1, 1e9))

	history, err := trainer.Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, history.Stopped)
	assert.Equal(t, 2, history.Epochs())
	assert.Equal(t, Idle, trainer.State())
}

func TestFit_Scheduler(t *testing.T) {
	ds := lineDataset(t, 4)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	cfg := DefaultConfig()
	cfg.Epochs = 3
	cfg.Scheduler = optim.StepDecay{StepSize: 1, Gamma: 0.5}
	history, err := New(model, nn.NewMSELoss(), opt, cfg).Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.05, 0.025}, history.LR, 1e-12)
}

func TestFit_CallbackOrder(t *testing.T) {
	ds := lineDataset(t, 4)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	var epochs []int
	cb := CallbackFunc(func(_ context.Context, epoch int, loss float64) error {
		epochs = append(epochs, epoch)
		return nil
	})
	cfg := DefaultConfig()
	cfg.Epochs = 3
	_, err := New(model, nn.NewMSELoss(), opt, cfg, cb, NewLoggingCallback()).Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, epochs)

	// A failing callback fails training.
	failing := CallbackFunc(func(context.Context, int, float64) error { return errors.New("disk full") })
	trainer := New(model, nn.NewMSELoss(), opt, cfg, failing)
	_, err = trainer.Fit(context.Background(), ds)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, Failed, trainer.State())
}

func TestCheckpoint(t *testing.T) {
	ds := lineDataset(t, 4)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	dir := t.TempDir()
	ckpt := &Checkpoint{
		Path:      filepath.Join(dir, "net_{epoch}.safetensors"),
		Model:     model,
		Optimizer: opt,
	}
	cfg := DefaultConfig()
	cfg.Epochs = 2
	_, err := New(model, nn.NewMSELoss(), opt, cfg, ckpt).Fit(context.Background(), ds)
	require.NoError(t, err)

	require.Equal(t, []string{filepath.Join(dir, "net_1.safetensors"), filepath.Join(dir, "net_2.safetensors")}, ckpt.Saved())

	tensors, meta, err := export.ReadSafeTensors(ckpt.Saved()[1])
	require.NoError(t, err)
	assert.Contains(t, tensors, "0.weight")
	assert.Contains(t, tensors, "0.bias")
	assert.Contains(t, tensors, "optimizer.velocity.0")
	assert.Equal(t, "2", meta["epoch"])
	assert.Equal(t, model.StateDict()["0.weight"].Data(), tensors["0.weight"].Data())
}

func TestEarlyStopping(t *testing.T) {
	es := NewEarlyStopping(2, 0.01)
	ctx := context.Background()
	es.OnTrainBegin(ctx)

	for _, loss := range []float64{1.0, 0.5, 0.495} {
		require.NoError(t, es.OnEpochEnd(ctx, 0, loss))
	}
	assert.False(t, es.ShouldStop())
	require.NoError(t, es.OnEpochEnd(ctx, 0, 0.6))
	assert.True(t, es.ShouldStop())

	es.OnTrainBegin(ctx)
	assert.False(t, es.ShouldStop())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "aborted", Aborted.String())
	assert.Equal(t, "failed", Failed.String())
}

// lossRecorder is a LossScheduler that records what the trainer reports.
type lossRecorder struct {
	optim.Constant
	resets int
	losses []float64
}

func (r *lossRecorder) Observe(_ int, loss float64) {
	r.losses = append(r.losses, loss)
}

func (r *lossRecorder) Reset() {
	r.resets++
	r.losses = nil
}

func TestFit_LossScheduler(t *testing.T) {
	ds := lineDataset(t, 4)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})

	rec := &lossRecorder{}
	cfg := DefaultConfig()
	cfg.Epochs = 3
	cfg.Scheduler = rec
	history, err := New(model, nn.NewMSELoss(), opt, cfg).Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.resets)
	assert.Equal(t, history.Loss, rec.losses)
}

func TestFit_ReduceOnPlateau(t *testing.T) {
	ds := lineDataset(t, 4)
	model, _ := linearModel(1)
	// A rate this large diverges, so the loss never improves after epoch 0.
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 3})

	cfg := DefaultConfig()
	cfg.Epochs = 4
	cfg.BatchSize = 4
	cfg.Shuffle = false
	cfg.Scheduler = optim.NewReduceOnPlateau(1, 0.5, 0)
	history, err := New(model, nn.NewMSELoss(), opt, cfg).Fit(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, history.LR, 4)

	// Replay the plateau rule over the recorded losses.
	lr, best := 3.0, math.Inf(1)
	for i, loss := range history.Loss {
		assert.InDelta(t, lr, history.LR[i], 1e-12, "epoch %d", i)
		if loss < best {
			best = loss
		} else {
			lr *= 0.5
		}
	}
	assert.Less(t, history.LR[3], history.LR[0])
}

// lrRecorder records the learning rate of every batch.
type lrRecorder struct {
	BaseCallback
	opt optim.Optimizer
	lrs []float64
}

func (r *lrRecorder) OnBatchEnd(context.Context, int, int, float64) {
	r.lrs = append(r.lrs, r.opt.LR())
}

func TestFit_CyclicScheduler(t *testing.T) {
	ds := lineDataset(t, 4)
	model, _ := linearModel(1)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})

	cfg := DefaultConfig()
	cfg.Epochs = 2
	cfg.BatchSize = 2
	cfg.Scheduler = optim.CyclicLR{MaxLR: 0.03, StepSize: 1, Mode: optim.Triangular}
	rec := &lrRecorder{opt: opt}
	history, err := New(model, nn.NewMSELoss(), opt, cfg, rec).Fit(context.Background(), ds)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.01, 0.03, 0.01, 0.03}, rec.lrs, 1e-12)
	assert.InDeltaSlice(t, []float64{0.01, 0.01}, history.LR, 1e-12)
}
