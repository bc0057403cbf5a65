package interp

import (
	"context"
	"io"
	"os"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/blobs"
	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/tensor"
	"k8s.io/klog/v2"
)

// Config holds configuration for an Evaluator.
type Config struct {
	Out     io.Writer // Command output (default: os.Stdout)
	Seed    int64     // Session seed for shuffling, splits and weight initialization
	Workers int       // Default data-parallel shards for train (default: 1)

	// Store transfers gs:// datasets and exports (default: Google Cloud Storage).
	Store blobs.Store

	// Visualizer renders the visualize command (default: TextVisualizer).
	Visualizer Visualizer

	// Backend runs tensor kernels (default: cpu.New()).
	Backend tensor.Backend
}

// DefaultConfig returns the default evaluator configuration.
func DefaultConfig() Config {
	return Config{
		Out:     os.Stdout,
		Seed:    42,
		Workers: 1,
	}
}

func (c Config) withDefaults() Config {
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Visualizer == nil {
		c.Visualizer = TextVisualizer{}
	}
	if c.Backend == nil {
		c.Backend = cpu.New()
	}
	return c
}

// Evaluator executes commands against one Environment.
//
// Commands run synchronously and in order. A command that fails returns a
// *CommandError and leaves the bindings as they were.
type Evaluator struct {
	cfg  Config
	env  *Environment
	tape *autodiff.Tape // Records expression arithmetic for backward()

	// Gradients from backward() calls of the running command. They reach
	// the tensors' buffers only if the command succeeds.
	pending []autodiff.Grads

	preprocessors *data.Registry
	augmentations *data.Registry
}

// NewEvaluator creates an evaluator with an empty environment.
func NewEvaluator(cfg Config) *Evaluator {
	cfg = cfg.withDefaults()
	tape := autodiff.NewTape(cfg.Backend)
	tape.StartRecording()
	return &Evaluator{
		cfg:           cfg,
		env:           NewEnvironment(),
		tape:          tape,
		preprocessors: data.Preprocessors(),
		augmentations: data.Augmentations(),
	}
}

// Env returns the evaluator's environment.
func (ev *Evaluator) Env() *Environment {
	return ev.env
}

// Config returns the evaluator configuration with defaults applied.
func (ev *Evaluator) Config() Config {
	return ev.cfg
}

// Run executes the commands of s in order and stops at the first error.
func (ev *Evaluator) Run(ctx context.Context, s *ast.Script) error {
	for _, cmd := range s.Commands {
		if err := ev.Exec(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// Exec executes one command.
func (ev *Evaluator) Exec(ctx context.Context, cmd *ast.Command) error {
	klog.FromContext(ctx).V(2).Info("executing command", "command", cmd.String(), "line", cmd.Pos.Line)

	// Each command differentiates only its own expressions.
	ev.tape.Reset()
	ev.pending = ev.pending[:0]

	var err error
	switch cmd.Verb {
	case "load":
		err = ev.load(ctx, cmd)
	case "create":
		if cmd.Noun == "tensor" {
			err = ev.createTensor(ctx, cmd)
		} else {
			err = ev.createModel(ctx, cmd)
		}
	case "preprocess":
		err = ev.transform(ctx, cmd, ev.preprocessors)
	case "augment":
		err = ev.transform(ctx, cmd, ev.augmentations)
	case "split":
		err = ev.split(ctx, cmd)
	case "train":
		err = ev.train(ctx, cmd)
	case "evaluate":
		err = ev.evaluate(ctx, cmd)
	case "save":
		err = ev.save(ctx, cmd)
	case "visualize":
		err = ev.visualize(ctx, cmd)
	case "print":
		err = ev.print(ctx, cmd)
	case "list":
		err = ev.list()
	case "clear":
		err = ev.clear(cmd)
	default:
		err = &ValueError{Msg: "unknown command " + cmd.Verb, Pos: cmd.Pos}
	}
	if err == nil {
		err = ev.flushGrads()
	}
	if err == nil {
		return nil
	}

	pos := cmd.Pos
	if p, ok := errPos(err); ok && p.Line > 0 {
		pos = p
	}
	return &CommandError{Verb: cmd.Verb, Pos: pos, Err: err}
}

// flushGrads adds the gradients staged by the command into their tensors.
func (ev *Evaluator) flushGrads() error {
	defer func() { ev.pending = ev.pending[:0] }()
	for _, grads := range ev.pending {
		for x, g := range grads {
			if err := x.AccumulateGrad(g); err != nil {
				return &autodiff.GradientError{Msg: err.Error()}
			}
		}
	}
	return nil
}

// stagedGrad returns the gradient staged for x by the running command, or nil.
func (ev *Evaluator) stagedGrad(x *tensor.Tensor) (*tensor.Tensor, error) {
	var sum *tensor.Tensor
	for _, grads := range ev.pending {
		g := grads.Get(x)
		if g == nil {
			continue
		}
		if sum == nil {
			sum = g
			continue
		}
		var err error
		if sum, err = ev.cfg.Backend.Add(sum, g); err != nil {
			return nil, err
		}
	}
	return sum, nil
}
