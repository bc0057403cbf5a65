package nn

import (
	"fmt"
	"math/rand"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
//
// Example:
//
//	layer := nn.NewLinear(784, 128, rand.New(rand.NewSource(42)))
//	output, err := layer.Forward(tape, input) // [32, 784] -> [32, 128]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features]; nil when disabled
}

// NewLinear creates a new Linear layer with a bias.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return newLinear(inFeatures, outFeatures, true, rng)
}

// NewLinearNoBias creates a new Linear layer without a bias term.
func NewLinearNoBias(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return newLinear(inFeatures, outFeatures, false, rng)
}

func newLinear(inFeatures, outFeatures int, withBias bool, rng *rand.Rand) *Linear {
	// Weight: [out_features, in_features]
	weightShape := tensor.Shape{outFeatures, inFeatures}
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape, rng)),
	}
	if withBias {
		l.bias = NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures}))
	}
	return l
}

// Forward computes the output of the linear layer.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(tape *autodiff.Tape, input *tensor.Tensor) (*tensor.Tensor, error) {
	inputShape := input.Shape()
	if len(inputShape) != 2 || inputShape[1] != l.inFeatures {
		return nil, &tensor.ShapeError{
			Op:     "linear",
			Shapes: []tensor.Shape{inputShape, l.weight.Tensor().Shape()},
			Msg:    fmt.Sprintf("expected input [batch, %d]", l.inFeatures),
		}
	}

	// Transpose weight: W.T has shape [in_features, out_features]
	wT, err := tape.Transpose(l.weight.Tensor())
	if err != nil {
		return nil, err
	}

	// [batch_size, in_features] @ [in_features, out_features] = [batch_size, out_features]
	output, err := tape.MatMul(input, wT)
	if err != nil {
		return nil, err
	}

	if l.bias != nil {
		// Bias [out_features] broadcasts over the batch dimension
		output, err = tape.Add(output, l.bias.Tensor())
		if err != nil {
			return nil, err
		}
	}

	return output, nil
}

// Parameters returns the trainable parameters of this layer.
//
// Returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear) Parameters() []*Parameter {
	if l.bias != nil {
		return []*Parameter{l.weight, l.bias}
	}
	return []*Parameter{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil if the layer has none.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns a map of parameter names to tensors.
func (l *Linear) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	stateDict["weight"] = l.weight.Tensor()
	if l.bias != nil {
		stateDict["bias"] = l.bias.Tensor()
	}
	return stateDict
}

// LoadStateDict loads parameters from a state dictionary.
func (l *Linear) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	weight, ok := stateDict["weight"]
	if !ok {
		return fmt.Errorf("missing weight in state dict")
	}
	if err := l.weight.Tensor().CopyFrom(weight); err != nil {
		return fmt.Errorf("weight: %w", err)
	}

	if l.bias != nil {
		bias, ok := stateDict["bias"]
		if !ok {
			return fmt.Errorf("missing bias in state dict")
		}
		if err := l.bias.Tensor().CopyFrom(bias); err != nil {
			return fmt.Errorf("bias: %w", err)
		}
	}

	return nil
}
