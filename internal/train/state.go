// Package train runs the optimization loop of a model over a dataset.
//
// A Trainer owns no data: it draws shuffled mini-batches from a
// data.Dataset, records the forward pass on an autodiff tape, backpropagates
// the loss and lets an optim.Optimizer update the parameters. With more than
// one worker each batch is split into contiguous shards whose gradients are
// computed on separate tapes and reduced in shard order before a single
// optimizer step.
//
// Example:
//
//	cfg := train.DefaultConfig()
//	cfg.Epochs = 50
//	trainer := train.New(model, nn.NewMSELoss(), optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.05}), cfg,
//	    train.NewLoggingCallback())
//	history, err := trainer.Fit(ctx, ds)
package train

// State is the lifecycle state of a Trainer.
type State int

const (
	// Idle means no training is in progress. Training that completed or was
	// stopped early returns to Idle.
	Idle State = iota
	// Running means Fit is executing.
	Running
	// Aborted means the last Fit was cancelled through its context.
	Aborted
	// Failed means the last Fit stopped on an error such as a non-finite loss.
	Failed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Aborted:
		return "aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
