package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/internal/parallel"
	"github.com/luma-ml/luma/internal/tensor"
	"k8s.io/klog/v2"
)

// Model is a trainable network. ForwardLogits is used instead of Forward
// when the loss expects unnormalized scores.
type Model interface {
	nn.Module
	ForwardLogits(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error)
}

// ErrRunning is returned by Fit when the trainer is already running.
var ErrRunning = errors.New("trainer is already running")

// History records the outcome of Fit.
type History struct {
	Loss    []float64 // Mean training loss per completed epoch
	LR      []float64 // Learning rate used per completed epoch
	Stopped bool      // Training ended early on request of a callback
}

// Epochs returns the number of completed epochs.
func (h *History) Epochs() int {
	return len(h.Loss)
}

// FinalLoss returns the loss of the last completed epoch, or NaN.
func (h *History) FinalLoss() float64 {
	if len(h.Loss) == 0 {
		return math.NaN()
	}
	return h.Loss[len(h.Loss)-1]
}

// Trainer runs mini-batch gradient descent.
type Trainer struct {
	model     Model
	loss      nn.Loss
	optimizer optim.Optimizer
	cfg       Config
	callbacks []Callback

	tape  *autodiff.Tape   // Serial mode
	tapes []*autodiff.Tape // Data-parallel mode, one per shard
	pool  *parallel.Pool

	mu    sync.Mutex
	state State
	epoch int
	batch int
}

// New creates a trainer. Zero fields of cfg take their DefaultConfig values,
// except Shuffle and Seed.
func New(model Model, loss nn.Loss, optimizer optim.Optimizer, cfg Config, callbacks ...Callback) *Trainer {
	cfg = cfg.withDefaults()

	t := &Trainer{
		model:     model,
		loss:      loss,
		optimizer: optimizer,
		cfg:       cfg,
		callbacks: callbacks,
		tape:      autodiff.NewTape(cfg.Backend),
		pool:      parallel.NewPool(cfg.Workers),
	}
	t.tape.StartRecording()
	if cfg.Workers > 1 {
		t.tapes = make([]*autodiff.Tape, cfg.Workers)
		for i := range t.tapes {
			t.tapes[i] = autodiff.NewTape(cfg.Backend)
			t.tapes[i].StartRecording()
		}
	}
	return t
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config {
	return t.cfg
}

// State returns the lifecycle state.
func (t *Trainer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Epoch returns the index of the current (or last) epoch.
func (t *Trainer) Epoch() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.epoch
}

// Batch returns the index of the current (or last) batch within its epoch.
func (t *Trainer) Batch() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.batch
}

func (t *Trainer) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Trainer) setPosition(epoch, batch int) {
	t.mu.Lock()
	t.epoch, t.batch = epoch, batch
	t.mu.Unlock()
}

// Fit trains the model on ds for the configured number of epochs.
//
// Cancelling ctx stops training after the current optimizer step; Fit then
// returns the history so far with ctx.Err() and the trainer is Aborted.
// A non-finite loss stops training before the step that would apply it; Fit
// returns a *tensor.NumericError and the trainer is Failed.
func (t *Trainer) Fit(ctx context.Context, ds data.Dataset) (*History, error) {
	t.mu.Lock()
	if t.state == Running {
		t.mu.Unlock()
		return nil, ErrRunning
	}
	t.state = Running
	t.epoch, t.batch = 0, 0
	t.mu.Unlock()

	history, err := t.fit(ctx, ds)
	switch {
	case err == nil:
		t.setState(Idle)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		t.setState(Aborted)
	default:
		t.setState(Failed)
	}
	for _, cb := range t.callbacks {
		cb.OnTrainEnd(ctx, history)
	}
	return history, err
}

func (t *Trainer) fit(ctx context.Context, ds data.Dataset) (*History, error) {
	log := klog.FromContext(ctx)
	history := &History{}

	n := ds.Size()
	if n == 0 {
		return history, fmt.Errorf("train: dataset is empty")
	}
	if t.cfg.Epochs < 0 || t.cfg.BatchSize < 0 {
		return history, fmt.Errorf("train: epochs and batch size must be positive, got %d and %d", t.cfg.Epochs, t.cfg.BatchSize)
	}

	for _, cb := range t.callbacks {
		cb.OnTrainBegin(ctx)
	}
	log.V(1).Info("training started", "samples", n, "epochs", t.cfg.Epochs, "batchSize", t.cfg.BatchSize, "workers", t.cfg.Workers)

	baseLR := t.optimizer.LR()
	lossSched, _ := t.cfg.Scheduler.(optim.LossScheduler)
	if lossSched != nil {
		lossSched.Reset()
	}
	batchSched, _ := t.cfg.Scheduler.(optim.BatchScheduler)

	indices := make([]int, n)
	steps := 0
	for epoch := range t.cfg.Epochs {
		lr := t.cfg.Scheduler.LR(epoch, baseLR)
		t.optimizer.SetLR(lr)
		for _, cb := range t.callbacks {
			cb.OnEpochBegin(ctx, epoch)
		}

		for i := range indices {
			indices[i] = i
		}
		if t.cfg.Shuffle {
			rng := rand.New(rand.NewSource(t.cfg.Seed + int64(epoch)))
			rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		}

		var total float64
		batch := 0
		for start := 0; start < n; start += t.cfg.BatchSize {
			end := min(start+t.cfg.BatchSize, n)
			t.setPosition(epoch, batch)
			if batchSched != nil {
				t.optimizer.SetLR(batchSched.BatchLR(steps, baseLR))
			}

			loss, err := t.step(ctx, ds, indices[start:end])
			if err != nil {
				return history, fmt.Errorf("epoch %d, batch %d: %w", epoch, batch, err)
			}
			total += loss * float64(end-start)
			for _, cb := range t.callbacks {
				cb.OnBatchEnd(ctx, epoch, batch, loss)
			}
			if err := ctx.Err(); err != nil {
				log.Info("training cancelled", "epoch", epoch, "batch", batch)
				return history, err
			}
			batch++
			steps++
		}

		mean := total / float64(n)
		history.Loss = append(history.Loss, mean)
		history.LR = append(history.LR, lr)
		if lossSched != nil {
			lossSched.Observe(epoch, mean)
			if next := lossSched.LR(epoch+1, baseLR); next != lr {
				log.V(1).Info("learning rate reduced", "epoch", epoch, "from", lr, "to", next)
			}
		}

		stop := false
		for _, cb := range t.callbacks {
			if err := cb.OnEpochEnd(ctx, epoch, mean); err != nil {
				return history, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			if s, ok := cb.(Stopper); ok && s.ShouldStop() {
				stop = true
			}
		}
		if stop {
			log.Info("training stopped early", "epoch", epoch, "loss", mean)
			history.Stopped = true
			break
		}
	}
	return history, nil
}

// step runs one optimizer step on the samples at idx and returns the batch
// loss.
func (t *Trainer) step(ctx context.Context, ds data.Dataset, idx []int) (float64, error) {
	if t.cfg.Workers > 1 && len(idx) > 1 {
		return t.parallelStep(ctx, ds, idx)
	}

	x, y, err := batchOf(ds, idx)
	if err != nil {
		return 0, err
	}

	t.tape.Reset()
	lossT, err := t.forwardLoss(t.tape, x, y)
	if err != nil {
		return 0, err
	}
	loss, err := finiteLoss(lossT)
	if err != nil {
		return 0, err
	}

	t.optimizer.ZeroGrad()
	if err := t.tape.Backward(lossT); err != nil {
		return 0, err
	}
	if err := t.optimizer.Step(); err != nil {
		return 0, err
	}
	return loss, nil
}

// shardResult is the outcome of one data-parallel shard.
type shardResult struct {
	loss  float64
	size  int
	grads []*tensor.Tensor // Indexed like the model's parameters; nil entries had no gradient
}

// parallelStep splits idx into contiguous shards, computes each shard's
// gradients on its own tape, and applies their size-weighted mean.
func (t *Trainer) parallelStep(ctx context.Context, ds data.Dataset, idx []int) (float64, error) {
	params := t.model.Parameters()
	shards := min(t.cfg.Workers, len(idx))

	results, err := parallel.Map(ctx, t.pool, shards, func(_ context.Context, s int) (shardResult, error) {
		lo, hi := s*len(idx)/shards, (s+1)*len(idx)/shards
		x, y, err := batchOf(ds, idx[lo:hi])
		if err != nil {
			return shardResult{}, err
		}

		tape := t.tapes[s]
		tape.Reset()
		lossT, err := t.forwardLoss(tape, x, y)
		if err != nil {
			return shardResult{}, err
		}
		loss, err := finiteLoss(lossT)
		if err != nil {
			return shardResult{}, err
		}
		grads, err := tape.Gradients(lossT)
		if err != nil {
			return shardResult{}, err
		}

		res := shardResult{loss: loss, size: hi - lo, grads: make([]*tensor.Tensor, len(params))}
		for i, p := range params {
			res.grads[i] = grads.Get(p.Tensor())
		}
		return res, nil
	})
	if err != nil {
		return 0, err
	}

	// Reduce in shard order so the result does not depend on scheduling.
	total := float64(len(idx))
	var loss float64
	sums := make([][]float64, len(params))
	for _, r := range results {
		w := float64(r.size) / total
		loss += r.loss * w
		for i, g := range r.grads {
			if g == nil {
				continue
			}
			if sums[i] == nil {
				sums[i] = make([]float64, g.NumElements())
			}
			for j, v := range g.Data() {
				sums[i][j] += v * w
			}
		}
	}

	t.optimizer.ZeroGrad()
	for i, p := range params {
		if sums[i] == nil {
			continue
		}
		g, err := tensor.New(sums[i], p.Tensor().Shape())
		if err != nil {
			return 0, err
		}
		if err := p.SetGrad(g); err != nil {
			return 0, err
		}
	}
	if err := t.optimizer.Step(); err != nil {
		return 0, err
	}
	return loss, nil
}

func (t *Trainer) forwardLoss(tape *autodiff.Tape, x, y *tensor.Tensor) (*tensor.Tensor, error) {
	var (
		out *tensor.Tensor
		err error
	)
	if t.loss.FromLogits() {
		out, err = t.model.ForwardLogits(tape, x)
	} else {
		out, err = t.model.Forward(tape, x)
	}
	if err != nil {
		return nil, err
	}
	return t.loss.Forward(tape, out, y)
}

func batchOf(ds data.Dataset, idx []int) (x, y *tensor.Tensor, err error) {
	x, y, err = data.Gather(ds, idx)
	if err != nil {
		return nil, nil, err
	}
	if y == nil {
		return nil, nil, fmt.Errorf("dataset has no labels")
	}
	return x, y, nil
}

func finiteLoss(loss *tensor.Tensor) (float64, error) {
	v, err := loss.Item()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &tensor.NumericError{Op: "train", Msg: fmt.Sprintf("loss is %v", v)}
	}
	return v, nil
}
