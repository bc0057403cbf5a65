package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/data"
	"github.com/luma-ml/luma/internal/export"
	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/internal/train"
	"k8s.io/klog/v2"
)

func (ev *Evaluator) printf(format string, args ...any) {
	fmt.Fprintf(ev.cfg.Out, format, args...)
}

// lookup resolves a name argument.
func (ev *Evaluator) lookup(e ast.Expr) (string, Value, error) {
	id := e.(*ast.Ident)
	v, ok := ev.env.Get(id.Name)
	if !ok {
		return id.Name, nil, &NameError{Name: id.Name, Pos: id.Pos}
	}
	return id.Name, v, nil
}

// dataset resolves a name bound to a dataset. Lazy datasets are loaded so
// that read errors surface here.
func (ev *Evaluator) dataset(e ast.Expr) (data.Dataset, error) {
	name, v, err := ev.lookup(e)
	if err != nil {
		return nil, err
	}
	dv, ok := v.(*DatasetValue)
	if !ok {
		return nil, &TypeError{Name: name, Want: KindDataset, Got: KindOf(v), Pos: e.Position()}
	}
	if lazy, ok := dv.D.(*data.Lazy); ok {
		if err := lazy.Err(); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", name, err)
		}
	}
	return dv.D, nil
}

// model resolves a name bound to a model.
func (ev *Evaluator) model(e ast.Expr) (string, *ModelValue, error) {
	name, v, err := ev.lookup(e)
	if err != nil {
		return name, nil, err
	}
	mv, ok := v.(*ModelValue)
	if !ok {
		return name, nil, &TypeError{Name: name, Want: KindModel, Got: KindOf(v), Pos: e.Position()}
	}
	return name, mv, nil
}

// load dataset PATH as NAME [lazy=bool] [label=col|none] [header=bool] [format=csv|tsv]
func (ev *Evaluator) load(ctx context.Context, cmd *ast.Command) error {
	path := cmd.Arg(0).(*ast.Literal).Str
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("lazy", "label", "header", "format"); err != nil {
		return err
	}

	format, err := p.name("format", "")
	if err != nil {
		return err
	}
	loader, opts, err := data.LoaderFor(strings.ToLower(format), path, ev.cfg.Store)
	if err != nil {
		return &ValueError{Param: "format", Msg: err.Error(), Pos: cmd.Pos}
	}
	if opts.Lazy, err = p.boolean("lazy", false); err != nil {
		return err
	}
	label, err := p.name("label", "")
	if err != nil {
		return err
	}
	if strings.EqualFold(label, "none") {
		opts.NoLabel = true
	} else {
		opts.Label = label
	}
	if p.has("header") {
		header, err := p.boolean("header", false)
		if err != nil {
			return err
		}
		opts.Header = data.HeaderAbsent
		if header {
			opts.Header = data.HeaderPresent
		}
	}

	ds, err := loader.Load(ctx, path, opts)
	if err != nil {
		return err
	}
	ev.env.Set(cmd.As, &DatasetValue{D: ds})
	if opts.Lazy {
		ev.printf("%s: deferred load of %s\n", cmd.As, path)
	} else {
		ev.printf("%s: %d samples, %d features\n", cmd.As, ds.Size(), ds.FeatureCount())
	}
	return nil
}

// create model NAME [input=k] [seed=s] { layer KIND params ... }
func (ev *Evaluator) createModel(ctx context.Context, cmd *ast.Command) error {
	name := cmd.Arg(0).(*ast.Ident).Name
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("input", "seed"); err != nil {
		return err
	}
	input, err := p.integer("input", 0, 1)
	if err != nil {
		return err
	}
	seed, err := p.seed("seed", ev.cfg.Seed)
	if err != nil {
		return err
	}

	specs := make([]nn.LayerSpec, len(cmd.Layers))
	for i, layer := range cmd.Layers {
		lp := ev.params(ctx, layer.Params, layer.Pos)
		spec := nn.LayerSpec{Kind: layer.Kind, Params: make(map[string]any, len(layer.Params))}
		for _, param := range layer.Params {
			v, err := lp.literal(param)
			if err != nil {
				return err
			}
			spec.Params[param.Key] = v
		}
		specs[i] = spec
	}
	if err := nn.ValidateSpecs(specs); err != nil {
		return specError(cmd, err)
	}

	mv := &ModelValue{Spec: specs, Seed: seed}
	if input == 0 {
		input, _ = nn.InputWidth(specs)
	}
	if input > 0 {
		net, err := nn.Build(specs, input, rand.New(rand.NewSource(seed)))
		if err != nil {
			return specError(cmd, err)
		}
		mv.Net = net
	}
	ev.env.Set(name, mv)

	if mv.Net != nil {
		ev.printf("%s: %d layers, %d params\n", name, len(mv.Net.Layers()), mv.Net.NumParams())
	} else {
		ev.printf("%s: %d layers, input width set by first dataset\n", name, len(specs))
	}
	return nil
}

// specError converts an nn.SpecError to a ValueError at the offending layer.
func specError(cmd *ast.Command, err error) error {
	var specErr *nn.SpecError
	if !errors.As(err, &specErr) {
		return err
	}
	pos := cmd.Pos
	if specErr.Layer < len(cmd.Layers) {
		pos = cmd.Layers[specErr.Layer].Pos
	}
	return &ValueError{Param: specErr.Param, Msg: specErr.Error(), Pos: pos}
}

// build returns the model's network, or a new one for ds's feature width.
// The caller binds a new network to mv once the command has succeeded.
func (ev *Evaluator) build(ctx context.Context, name string, mv *ModelValue, ds data.Dataset) (*nn.Sequential, error) {
	if mv.Net != nil {
		return mv.Net, nil
	}
	net, err := nn.Build(mv.Spec, ds.FeatureCount(), rand.New(rand.NewSource(mv.Seed)))
	if err != nil {
		return nil, &ValueError{Param: "input", Msg: fmt.Sprintf("model %s: %v", name, err)}
	}
	klog.FromContext(ctx).V(1).Info("built model", "model", name, "input", ds.FeatureCount(), "params", net.NumParams())
	return net, nil
}

// create tensor NAME values=<expr> [requires_grad=bool]
func (ev *Evaluator) createTensor(ctx context.Context, cmd *ast.Command) error {
	name := cmd.Arg(0).(*ast.Ident).Name
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("values", "requires_grad"); err != nil {
		return err
	}
	param := p.get("values")
	if param == nil {
		return &ValueError{Param: "values", Msg: "required", Pos: cmd.Pos}
	}
	v, err := ev.eval(ctx, param.Value)
	if err != nil {
		return err
	}
	src, err := operand(param.Value, v)
	if err != nil {
		return err
	}
	requiresGrad, err := p.boolean("requires_grad", false)
	if err != nil {
		return err
	}

	t := src.Clone()
	t.SetRequiresGrad(requiresGrad)
	ev.env.Set(name, &TensorValue{T: t})
	return nil
}

// preprocess|augment NAME method=m[(args)] [as NEW]
func (ev *Evaluator) transform(ctx context.Context, cmd *ast.Command, registry *data.Registry) error {
	ds, err := ev.dataset(cmd.Arg(0))
	if err != nil {
		return err
	}
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("method"); err != nil {
		return err
	}
	method, args, err := p.method("method")
	if err != nil {
		return err
	}
	t, ok := registry.Lookup(strings.ToLower(method))
	if !ok {
		return p.errorf(p.get("method"), "unknown %s method %q (want one of %s)",
			cmd.Verb, method, strings.Join(registry.Names(), ", "))
	}
	out, err := t.Apply(ctx, ds, args)
	if err != nil {
		return p.errorf(p.get("method"), "%v", err)
	}

	target := cmd.As
	if target == "" {
		target = cmd.Arg(0).(*ast.Ident).Name
	}
	ev.env.Set(target, &DatasetValue{D: out})
	ev.printf("%s: %s %s (%d samples)\n", target, cmd.Verb, ast.ExprString(p.get("method").Value), out.Size())
	return nil
}

// split NAME ratio=r [shuffle=bool] [seed=s] [train=A] [test=B]
func (ev *Evaluator) split(ctx context.Context, cmd *ast.Command) error {
	ds, err := ev.dataset(cmd.Arg(0))
	if err != nil {
		return err
	}
	name := cmd.Arg(0).(*ast.Ident).Name
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("ratio", "shuffle", "seed", "train", "test"); err != nil {
		return err
	}
	if !p.has("ratio") {
		return &ValueError{Param: "ratio", Msg: "required", Pos: cmd.Pos}
	}
	ratio, err := p.number("ratio", 0)
	if err != nil {
		return err
	}
	if !(ratio > 0 && ratio < 1) {
		return p.errorf(p.get("ratio"), "must be in (0, 1), got %v", ratio)
	}
	shuffle, err := p.boolean("shuffle", true)
	if err != nil {
		return err
	}
	seed, err := p.seed("seed", ev.cfg.Seed)
	if err != nil {
		return err
	}
	trainName, err := p.name("train", name+"_train")
	if err != nil {
		return err
	}
	testName, err := p.name("test", name+"_test")
	if err != nil {
		return err
	}

	trainSet, testSet, err := data.Split(ds, ratio, shuffle, seed)
	if err != nil {
		return err
	}
	if trainSet.Size() == 0 || testSet.Size() == 0 {
		return p.errorf(p.get("ratio"), "%v leaves an empty part of %d samples", ratio, ds.Size())
	}
	ev.env.Set(trainName, &DatasetValue{D: trainSet})
	ev.env.Set(testName, &DatasetValue{D: testSet})
	ev.printf("%s: %d samples, %s: %d samples\n", trainName, trainSet.Size(), testName, testSet.Size())
	return nil
}

var trainParams = []string{
	"epochs", "batch_size", "learning_rate", "optimizer", "momentum", "beta1", "beta2", "eps",
	"loss", "seed", "shuffle", "workers", "schedule", "step_size", "gamma", "decay", "min_lr",
	"factor", "lr_patience", "max_lr", "mode", "patience", "min_delta", "checkpoint", "checkpoint_best",
}

// train model NAME on DATA [with] params
func (ev *Evaluator) train(ctx context.Context, cmd *ast.Command) error {
	name, mv, err := ev.model(cmd.Arg(0))
	if err != nil {
		return err
	}
	ds, err := ev.dataset(cmd.Arg(1))
	if err != nil {
		return err
	}
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only(trainParams...); err != nil {
		return err
	}

	cfg := train.DefaultConfig()
	if cfg.Epochs, err = p.integer("epochs", cfg.Epochs, 1); err != nil {
		return err
	}
	if cfg.BatchSize, err = p.integer("batch_size", cfg.BatchSize, 1); err != nil {
		return err
	}
	if cfg.Seed, err = p.seed("seed", ev.cfg.Seed); err != nil {
		return err
	}
	if cfg.Shuffle, err = p.boolean("shuffle", cfg.Shuffle); err != nil {
		return err
	}
	if cfg.Workers, err = p.integer("workers", ev.cfg.Workers, 1); err != nil {
		return err
	}
	cfg.Backend = ev.cfg.Backend

	lossName, err := p.choice("loss", mv.lossName(), "mse", "bce", "cross_entropy")
	if err != nil {
		return err
	}
	loss, err := nn.LossByName(lossName)
	if err != nil {
		return err
	}

	if cfg.Scheduler, err = ev.scheduler(p, cfg.Epochs); err != nil {
		return err
	}

	net, err := ev.build(ctx, name, mv, ds)
	if err != nil {
		return err
	}
	opt, err := ev.optimizer(p, net)
	if err != nil {
		return err
	}

	callbacks := []train.Callback{
		train.NewLoggingCallback(),
		&progressCallback{out: ev.cfg.Out, epochs: cfg.Epochs, optimizer: opt},
	}
	if p.has("patience") {
		patience, err := p.integer("patience", 0, 1)
		if err != nil {
			return err
		}
		minDelta, err := p.number("min_delta", 0)
		if err != nil {
			return err
		}
		callbacks = append(callbacks, train.NewEarlyStopping(patience, minDelta))
	}
	if p.has("checkpoint") {
		path, err := p.name("checkpoint", "")
		if err != nil {
			return err
		}
		exp, err := export.ForPath(path, "", ev.cfg.Store)
		if err != nil {
			return p.errorf(p.get("checkpoint"), "%v", err)
		}
		best, err := p.boolean("checkpoint_best", false)
		if err != nil {
			return err
		}
		callbacks = append(callbacks, &train.Checkpoint{Path: path, Model: net, Optimizer: opt, SaveBestOnly: best, Exporter: exp})
	} else if p.has("checkpoint_best") {
		return p.errorf(p.get("checkpoint_best"), "requires checkpoint=PATH")
	}

	history, err := train.New(net, loss, opt, cfg, callbacks...).Fit(ctx, ds)
	if err != nil {
		return fmt.Errorf("train model %s: %w", name, err)
	}
	mv.Net, mv.Loss = net, lossName
	suffix := ""
	if history.Stopped {
		suffix = " (stopped early)"
	}
	ev.printf("%s: trained %d epochs, final loss %.6f%s\n", name, history.Epochs(), history.FinalLoss(), suffix)
	return nil
}

func (ev *Evaluator) optimizer(p *params, net *nn.Sequential) (optim.Optimizer, error) {
	kind, err := p.choice("optimizer", "sgd", "sgd", "adam")
	if err != nil {
		return nil, err
	}
	var lr float64 // 0 selects the optimizer default
	if p.has("learning_rate") {
		if lr, err = p.positive("learning_rate", 0); err != nil {
			return nil, err
		}
	}

	switch kind {
	case "adam":
		if p.has("momentum") {
			return nil, p.errorf(p.get("momentum"), "not used by adam")
		}
		beta1, err := p.fraction("beta1", 0.9)
		if err != nil {
			return nil, err
		}
		beta2, err := p.fraction("beta2", 0.999)
		if err != nil {
			return nil, err
		}
		eps, err := p.positive("eps", 1e-8)
		if err != nil {
			return nil, err
		}
		return optim.NewAdam(net.Parameters(), optim.AdamConfig{LR: lr, Betas: [2]float64{beta1, beta2}, Eps: eps}), nil
	default:
		for _, key := range []string{"beta1", "beta2", "eps"} {
			if p.has(key) {
				return nil, p.errorf(p.get(key), "not used by sgd")
			}
		}
		momentum, err := p.fraction("momentum", 0)
		if err != nil {
			return nil, err
		}
		return optim.NewSGD(net.Parameters(), optim.SGDConfig{LR: lr, Momentum: momentum}), nil
	}
}

func (ev *Evaluator) scheduler(p *params, epochs int) (optim.Scheduler, error) {
	kind, err := p.choice("schedule", "constant", "constant", "step", "exponential", "cosine", "time", "plateau", "cyclic")
	if err != nil {
		return nil, err
	}
	var sc optim.SchedulerConfig
	if sc.StepSize, err = p.integer("step_size", 0, 1); err != nil {
		return nil, err
	}
	if sc.Gamma, err = p.number("gamma", 0); err != nil {
		return nil, err
	}
	if sc.Decay, err = p.number("decay", 0); err != nil {
		return nil, err
	}
	if sc.EtaMin, err = p.number("min_lr", 0); err != nil {
		return nil, err
	}
	sc.MinLR = sc.EtaMin
	if sc.Factor, err = p.number("factor", 0); err != nil {
		return nil, err
	}
	if sc.Patience, err = p.integer("lr_patience", 0, 1); err != nil {
		return nil, err
	}
	if sc.MaxLR, err = p.number("max_lr", 0); err != nil {
		return nil, err
	}
	if sc.Mode, err = p.choice("mode", "triangular", "triangular", "triangular2", "exp_range"); err != nil {
		return nil, err
	}
	sc.TMax = epochs
	s, err := optim.SchedulerByName(kind, sc)
	if err != nil {
		return nil, &ValueError{Param: "schedule", Msg: err.Error(), Pos: p.pos}
	}
	return s, nil
}

// lossName returns the loss of the last training run, or mse.
func (mv *ModelValue) lossName() string {
	if mv.Loss != "" {
		return mv.Loss
	}
	return "mse"
}

// progressCallback prints one line per epoch to the session output.
type progressCallback struct {
	train.BaseCallback

	out       io.Writer
	epochs    int
	optimizer optim.Optimizer
}

func (c *progressCallback) OnEpochEnd(_ context.Context, epoch int, loss float64) error {
	_, err := fmt.Fprintf(c.out, "epoch %d/%d loss=%.6f lr=%g\n", epoch+1, c.epochs, loss, c.optimizer.LR())
	return err
}

// evaluate model NAME on DATA [loss=...] [batch_size=n] [as S]
func (ev *Evaluator) evaluate(ctx context.Context, cmd *ast.Command) error {
	name, mv, err := ev.model(cmd.Arg(0))
	if err != nil {
		return err
	}
	ds, err := ev.dataset(cmd.Arg(1))
	if err != nil {
		return err
	}
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("loss", "batch_size"); err != nil {
		return err
	}
	lossName, err := p.choice("loss", mv.lossName(), "mse", "bce", "cross_entropy")
	if err != nil {
		return err
	}
	loss, err := nn.LossByName(lossName)
	if err != nil {
		return err
	}
	batchSize, err := p.integer("batch_size", 0, 1)
	if err != nil {
		return err
	}
	net, err := ev.build(ctx, name, mv, ds)
	if err != nil {
		return err
	}

	m, err := train.Evaluate(ctx, net, loss, ds, batchSize)
	if err != nil {
		return fmt.Errorf("evaluate model %s: %w", name, err)
	}
	mv.Net = net
	if cmd.As != "" {
		ev.env.Set(cmd.As, ScalarValue(m.Loss))
	}
	ev.printf("%s: %s\n", name, m)
	return nil
}

// save model NAME to PATH [format=safetensors|json]
func (ev *Evaluator) save(ctx context.Context, cmd *ast.Command) error {
	name, mv, err := ev.model(cmd.Arg(0))
	if err != nil {
		return err
	}
	path := cmd.Arg(1).(*ast.Literal).Str
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("format"); err != nil {
		return err
	}
	format, err := p.choice("format", "", append([]string{""}, export.Formats()...)...)
	if err != nil {
		return err
	}
	if mv.Net == nil {
		return &ValueError{Msg: fmt.Sprintf("model %s has no parameters yet: declare input= or train it first", name), Pos: cmd.Pos}
	}
	exp, err := export.ForPath(path, format, ev.cfg.Store)
	if err != nil {
		return &ValueError{Param: "format", Msg: err.Error(), Pos: cmd.Pos}
	}

	kinds := make([]string, len(mv.Spec))
	for i, spec := range mv.Spec {
		kinds[i] = spec.Kind
	}
	meta := map[string]string{
		"model":  name,
		"layers": strings.Join(kinds, ","),
		"params": strconv.Itoa(mv.Net.NumParams()),
	}
	if err := exp.Export(ctx, path, mv.Net.StateDict(), meta); err != nil {
		return fmt.Errorf("save model %s: %w", name, err)
	}
	ev.printf("%s: saved to %s\n", name, path)
	return nil
}

// visualize NAME [rows=n]
func (ev *Evaluator) visualize(ctx context.Context, cmd *ast.Command) error {
	name, v, err := ev.lookup(cmd.Arg(0))
	if err != nil {
		return err
	}
	p := ev.params(ctx, cmd.Params, cmd.Pos)
	if err := p.only("rows"); err != nil {
		return err
	}
	rows, err := p.integer("rows", 5, 0)
	if err != nil {
		return err
	}
	return ev.cfg.Visualizer.Visualize(ev.cfg.Out, name, v, VisualizeOptions{Rows: rows})
}

// print EXPR
func (ev *Evaluator) print(ctx context.Context, cmd *ast.Command) error {
	v, err := ev.eval(ctx, cmd.Arg(0))
	if err != nil {
		return err
	}
	ev.printf("%s\n", Describe(v))
	return nil
}

// list
func (ev *Evaluator) list() error {
	for _, name := range ev.env.Names() {
		v, _ := ev.env.Get(name)
		ev.printf("%s: %s\n", name, KindOf(v))
	}
	return nil
}

// clear [NAME]
func (ev *Evaluator) clear(cmd *ast.Command) error {
	if len(cmd.Args) == 0 {
		ev.env.Clear()
		return nil
	}
	id := cmd.Arg(0).(*ast.Ident)
	if !ev.env.Delete(id.Name) {
		return &NameError{Name: id.Name, Pos: id.Pos}
	}
	return nil
}
