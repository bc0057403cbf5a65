package train

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/luma-ml/luma/internal/export"
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/internal/tensor"
	"k8s.io/klog/v2"
)

// Callback observes training progress.
//
// Epoch and batch indices are 0-based. An error from OnEpochEnd stops
// training and fails Fit.
type Callback interface {
	OnTrainBegin(ctx context.Context)
	OnEpochBegin(ctx context.Context, epoch int)
	OnBatchEnd(ctx context.Context, epoch, batch int, loss float64)
	OnEpochEnd(ctx context.Context, epoch int, loss float64) error
	OnTrainEnd(ctx context.Context, history *History)
}

// Stopper is implemented by callbacks that can end training early.
// ShouldStop is consulted after every OnEpochEnd.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback implements every Callback method as a no-op. Embed it to
// override only the hooks you need.
type BaseCallback struct{}

// OnTrainBegin implements Callback.
func (BaseCallback) OnTrainBegin(context.Context) {}

// OnEpochBegin implements Callback.
func (BaseCallback) OnEpochBegin(context.Context, int) {}

// OnBatchEnd implements Callback.
func (BaseCallback) OnBatchEnd(context.Context, int, int, float64) {}

// OnEpochEnd implements Callback.
func (BaseCallback) OnEpochEnd(context.Context, int, float64) error { return nil }

// OnTrainEnd implements Callback.
func (BaseCallback) OnTrainEnd(context.Context, *History) {}

// CallbackFunc is called at the end of every epoch.
type CallbackFunc func(ctx context.Context, epoch int, loss float64) error

// OnTrainBegin implements Callback.
func (CallbackFunc) OnTrainBegin(context.Context) {}

// OnEpochBegin implements Callback.
func (CallbackFunc) OnEpochBegin(context.Context, int) {}

// OnBatchEnd implements Callback.
func (CallbackFunc) OnBatchEnd(context.Context, int, int, float64) {}

// OnEpochEnd calls f.
func (f CallbackFunc) OnEpochEnd(ctx context.Context, epoch int, loss float64) error {
	return f(ctx, epoch, loss)
}

// OnTrainEnd implements Callback.
func (CallbackFunc) OnTrainEnd(context.Context, *History) {}

// LoggingCallback reports progress through the context's logger.
// Epoch summaries log at the default level, batches at V(2).
type LoggingCallback struct {
	BaseCallback

	started    time.Time
	epochStart time.Time
}

// NewLoggingCallback creates a LoggingCallback.
func NewLoggingCallback() *LoggingCallback {
	return &LoggingCallback{}
}

// OnTrainBegin implements Callback.
func (l *LoggingCallback) OnTrainBegin(ctx context.Context) {
	l.started = time.Now()
	klog.FromContext(ctx).Info("training started")
}

// OnEpochBegin implements Callback.
func (l *LoggingCallback) OnEpochBegin(ctx context.Context, epoch int) {
	l.epochStart = time.Now()
	klog.FromContext(ctx).V(1).Info("epoch started", "epoch", epoch+1)
}

// OnBatchEnd implements Callback.
func (l *LoggingCallback) OnBatchEnd(ctx context.Context, epoch, batch int, loss float64) {
	klog.FromContext(ctx).V(2).Info("batch complete", "epoch", epoch+1, "batch", batch+1, "loss", loss)
}

// OnEpochEnd implements Callback.
func (l *LoggingCallback) OnEpochEnd(ctx context.Context, epoch int, loss float64) error {
	klog.FromContext(ctx).Info("epoch complete", "epoch", epoch+1, "loss", loss, "duration", time.Since(l.epochStart))
	return nil
}

// OnTrainEnd implements Callback.
func (l *LoggingCallback) OnTrainEnd(ctx context.Context, history *History) {
	if history == nil {
		return
	}
	klog.FromContext(ctx).Info("training finished", "epochs", history.Epochs(), "finalLoss", history.FinalLoss(), "stoppedEarly", history.Stopped, "duration", time.Since(l.started))
}

// EarlyStopping ends training when the epoch loss has not improved by more
// than MinDelta for Patience consecutive epochs.
type EarlyStopping struct {
	BaseCallback

	Patience int
	MinDelta float64

	best    float64
	wait    int
	stopped bool
}

// NewEarlyStopping creates an EarlyStopping callback.
func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{Patience: patience, MinDelta: minDelta, best: math.Inf(1)}
}

// OnTrainBegin resets the callback.
func (e *EarlyStopping) OnTrainBegin(context.Context) {
	e.best = math.Inf(1)
	e.wait = 0
	e.stopped = false
}

// OnEpochEnd implements Callback.
func (e *EarlyStopping) OnEpochEnd(ctx context.Context, epoch int, loss float64) error {
	if loss < e.best-e.MinDelta {
		e.best = loss
		e.wait = 0
		return nil
	}
	e.wait++
	if e.wait >= e.Patience {
		e.stopped = true
		klog.FromContext(ctx).V(1).Info("early stopping triggered", "epoch", epoch+1, "bestLoss", e.best)
	}
	return nil
}

// ShouldStop implements Stopper.
func (e *EarlyStopping) ShouldStop() bool {
	return e.stopped
}

// StateDicter exposes named tensors for saving.
type StateDicter interface {
	StateDict() map[string]*tensor.Tensor
}

// Checkpoint saves the model (and optionally the optimizer state) at the end
// of epochs.
//
// The saved tensors are the model's state dict plus the optimizer's state
// dict under an "optimizer." prefix. Metadata records the epoch, the loss and
// the learning rate. Path may contain {epoch}, replaced by the 1-based epoch
// number.
//
// Example:
//
//	ckpt := &train.Checkpoint{
//	    Path:         "ckpt/net_{epoch}.safetensors",
//	    Model:        model,
//	    Optimizer:    optimizer,
//	    SaveBestOnly: true,
//	}
type Checkpoint struct {
	BaseCallback

	Path         string
	Model        StateDicter
	Optimizer    optim.Optimizer // Optional
	SaveBestOnly bool
	Exporter     export.Exporter // Default: chosen from Path

	best  float64
	saved []string
}

// OnTrainBegin resets the best loss.
func (c *Checkpoint) OnTrainBegin(context.Context) {
	c.best = math.Inf(1)
	c.saved = nil
}

// OnEpochEnd implements Callback.
func (c *Checkpoint) OnEpochEnd(ctx context.Context, epoch int, loss float64) error {
	if c.SaveBestOnly && !(loss < c.best) {
		return nil
	}
	c.best = math.Min(c.best, loss)

	path := strings.ReplaceAll(c.Path, "{epoch}", strconv.Itoa(epoch+1))
	exp := c.Exporter
	if exp == nil {
		var err error
		exp, err = export.ForPath(path, "", nil)
		if err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}

	tensors := make(map[string]*tensor.Tensor)
	for name, t := range c.Model.StateDict() {
		tensors[name] = t
	}
	meta := map[string]string{
		"epoch": strconv.Itoa(epoch + 1),
		"loss":  strconv.FormatFloat(loss, 'g', -1, 64),
	}
	if c.Optimizer != nil {
		for name, t := range c.Optimizer.StateDict() {
			tensors["optimizer."+name] = t
		}
		meta["lr"] = strconv.FormatFloat(c.Optimizer.LR(), 'g', -1, 64)
	}

	if err := exp.Export(ctx, path, tensors, meta); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	c.saved = append(c.saved, path)
	klog.FromContext(ctx).V(1).Info("saved checkpoint", "path", path, "epoch", epoch+1, "loss", loss)
	return nil
}

// Saved returns the paths written during the last Fit, in order.
func (c *Checkpoint) Saved() []string {
	return c.saved
}
