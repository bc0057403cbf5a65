package nn

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
// It is the model type trained and evaluated by scripts.
//
// Each module's output becomes the next module's input, creating a
// sequential pipeline of transformations.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	)
//
//	output, err := model.Forward(tape, input)
type Sequential struct {
	modules []Module
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{
		modules: modules,
	}
}

// Add appends a module to the end of the sequence.
func (s *Sequential) Add(m Module) {
	s.modules = append(s.modules, m)
}

// Layers returns the modules in order.
func (s *Sequential) Layers() []Module {
	return s.modules
}

// Forward applies all modules in sequence.
//
// The output of each module becomes the input to the next module.
func (s *Sequential) Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	return s.forward(tape, input, len(s.modules))
}

// ForwardLogits applies all modules except a trailing Softmax, returning the
// unnormalized scores consumed by CrossEntropyLoss.
func (s *Sequential) ForwardLogits(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	n := len(s.modules)
	if n > 0 {
		if _, ok := s.modules[n-1].(*Softmax); ok {
			n--
		}
	}
	return s.forward(tape, input, n)
}

func (s *Sequential) forward(tape *autodiff.Tape, input *tensor.Tensor, n int) (*tensor.Tensor, error) {
	output := input
	for i, module := range s.modules[:n] {
		var err error
		output, err = module.Forward(tape, output)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return output, nil
}

// Parameters returns all trainable parameters from all modules.
//
// Parameters are collected from all modules in the sequence.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter

	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}

	return params
}

// NumParams returns the total number of trainable scalars.
func (s *Sequential) NumParams() int {
	n := 0
	for _, p := range s.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}

// ZeroGrad clears the gradients of all parameters.
func (s *Sequential) ZeroGrad() {
	for _, p := range s.Parameters() {
		p.ZeroGrad()
	}
}

// StateDict returns every parameter keyed "<layer index>.<name>", for
// example "0.weight" and "0.bias". The tensors are the live parameters, not
// copies.
func (s *Sequential) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for i, module := range s.modules {
		for _, p := range module.Parameters() {
			stateDict[strconv.Itoa(i)+"."+p.Name()] = p.Tensor()
		}
	}
	return stateDict
}

// LoadStateDict copies values from stateDict into the parameters.
// Every parameter must be present with a matching shape.
func (s *Sequential) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	for i, module := range s.modules {
		for _, p := range module.Parameters() {
			key := strconv.Itoa(i) + "." + p.Name()
			src, ok := stateDict[key]
			if !ok {
				return fmt.Errorf("missing %s in state dict", key)
			}
			if err := p.Tensor().CopyFrom(src); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// StateKeys returns the state dict keys in sorted order.
func (s *Sequential) StateKeys() []string {
	keys := make([]string, 0)
	for k := range s.StateDict() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary renders a table of layers with their output widths and
// parameter counts.
func (s *Sequential) Summary() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tLayer\tOutput\tParams")
	for i, module := range s.modules {
		params := 0
		for _, p := range module.Parameters() {
			params += p.Tensor().NumElements()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i, layerName(module), layerOutput(module), params)
	}
	fmt.Fprintf(w, "Total params: %d\n", s.NumParams())
	_ = w.Flush()
	return b.String()
}

func layerName(m Module) string {
	switch l := m.(type) {
	case *Linear:
		if l.Bias() == nil {
			return fmt.Sprintf("Linear(%d, %d, bias=false)", l.InFeatures(), l.OutFeatures())
		}
		return fmt.Sprintf("Linear(%d, %d)", l.InFeatures(), l.OutFeatures())
	case *ReLU:
		return "ReLU"
	case *Sigmoid:
		return "Sigmoid"
	case *Tanh:
		return "Tanh"
	case *Softmax:
		return "Softmax"
	default:
		return fmt.Sprintf("%T", m)
	}
}

func layerOutput(m Module) string {
	if l, ok := m.(*Linear); ok {
		return fmt.Sprintf("[*, %d]", l.OutFeatures())
	}
	return "same"
}
