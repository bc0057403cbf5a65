package nn

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"
)

// LayerSpec declares one layer of a model before its parameters exist.
//
// Params values are float64, string or bool.
type LayerSpec struct {
	Kind   string
	Params map[string]any
}

// SpecError reports an invalid layer declaration.
type SpecError struct {
	Layer int    // Index of the offending layer spec
	Param string // Offending parameter; empty for kind errors
	Msg   string
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("layer %d: %s", e.Layer, e.Msg)
	}
	return fmt.Sprintf("layer %d: %s: %s", e.Layer, e.Param, e.Msg)
}

// layerParams lists the parameters accepted per layer kind.
var layerParams = map[string][]string{
	"dense":   {"units", "input", "activation", "bias"},
	"linear":  {"units", "input", "activation", "bias"},
	"relu":    nil,
	"sigmoid": nil,
	"tanh":    nil,
	"softmax": nil,
}

// LayerKinds returns the supported layer kinds.
func LayerKinds() []string {
	return []string{"dense", "linear", "relu", "sigmoid", "tanh", "softmax"}
}

// ValidateSpecs checks kinds and parameter values without building anything.
func ValidateSpecs(specs []LayerSpec) error {
	if len(specs) == 0 {
		return &SpecError{Layer: 0, Msg: "model has no layers"}
	}
	width := 0
	for i, spec := range specs {
		allowed, ok := layerParams[strings.ToLower(spec.Kind)]
		if !ok {
			return &SpecError{Layer: i, Msg: fmt.Sprintf("unknown layer kind %q (want one of %s)", spec.Kind, strings.Join(LayerKinds(), ", "))}
		}
		for key := range spec.Params {
			if !slices.Contains(allowed, key) {
				return &SpecError{Layer: i, Param: key, Msg: fmt.Sprintf("not a parameter of %s", spec.Kind)}
			}
		}
		if !isDense(spec) {
			continue
		}

		units, err := positiveInt(spec, i, "units", true)
		if err != nil {
			return err
		}
		input, err := positiveInt(spec, i, "input", false)
		if err != nil {
			return err
		}
		if input > 0 && width > 0 && input != width {
			return &SpecError{Layer: i, Param: "input", Msg: fmt.Sprintf("%d does not match previous layer width %d", input, width)}
		}
		if v, ok := spec.Params["activation"]; ok {
			name, isStr := v.(string)
			if !isStr {
				return &SpecError{Layer: i, Param: "activation", Msg: "must be a name"}
			}
			if _, err := activation(name); err != nil {
				return &SpecError{Layer: i, Param: "activation", Msg: err.Error()}
			}
		}
		if v, ok := spec.Params["bias"]; ok {
			if _, isBool := v.(bool); !isBool {
				return &SpecError{Layer: i, Param: "bias", Msg: "must be true or false"}
			}
		}
		width = units
	}
	return nil
}

// InputWidth returns the input width declared by the first dense layer's
// input parameter, if any.
func InputWidth(specs []LayerSpec) (int, bool) {
	for i, spec := range specs {
		if !isDense(spec) {
			continue
		}
		n, err := positiveInt(spec, i, "input", false)
		if err != nil || n == 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Build creates a Sequential from validated specs. inFeatures is the width of
// the model input; rng initializes the weights.
//
// A dense layer with activation=<name> expands into the Linear layer
// followed by the activation module.
func Build(specs []LayerSpec, inFeatures int, rng *rand.Rand) (*Sequential, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	if inFeatures <= 0 {
		return nil, &SpecError{Layer: 0, Param: "input", Msg: fmt.Sprintf("input width must be positive, got %d", inFeatures)}
	}

	model := NewSequential()
	width := inFeatures
	for i, spec := range specs {
		if !isDense(spec) {
			m, err := activation(spec.Kind)
			if err != nil {
				return nil, &SpecError{Layer: i, Msg: err.Error()}
			}
			model.Add(m)
			continue
		}

		if n, _ := positiveInt(spec, i, "input", false); n > 0 && n != width {
			return nil, &SpecError{Layer: i, Param: "input", Msg: fmt.Sprintf("%d does not match input width %d", n, width)}
		}
		units, _ := positiveInt(spec, i, "units", true)
		bias := true
		if v, ok := spec.Params["bias"].(bool); ok {
			bias = v
		}
		if bias {
			model.Add(NewLinear(width, units, rng))
		} else {
			model.Add(NewLinearNoBias(width, units, rng))
		}
		if name, ok := spec.Params["activation"].(string); ok {
			m, err := activation(name)
			if err != nil {
				return nil, &SpecError{Layer: i, Param: "activation", Msg: err.Error()}
			}
			if m != nil {
				model.Add(m)
			}
		}
		width = units
	}
	return model, nil
}

func isDense(spec LayerSpec) bool {
	k := strings.ToLower(spec.Kind)
	return k == "dense" || k == "linear"
}

// activation returns the module for an activation name; "linear" and
// "none" return nil.
func activation(name string) (Module, error) {
	switch strings.ToLower(name) {
	case "relu":
		return NewReLU(), nil
	case "sigmoid":
		return NewSigmoid(), nil
	case "tanh":
		return NewTanh(), nil
	case "softmax":
		return NewSoftmax(), nil
	case "linear", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}

func positiveInt(spec LayerSpec, layer int, key string, required bool) (int, error) {
	v, ok := spec.Params[key]
	if !ok {
		if required {
			return 0, &SpecError{Layer: layer, Param: key, Msg: "required"}
		}
		return 0, nil
	}
	f, isNum := v.(float64)
	if !isNum || f < 1 || f != math.Trunc(f) {
		return 0, &SpecError{Layer: layer, Param: key, Msg: fmt.Sprintf("must be a positive integer, got %v", v)}
	}
	return int(f), nil
}
