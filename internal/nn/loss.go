package nn

import (
	"fmt"
	"strings"

	"github.com/luma-ml/luma/internal/autodiff"
	"github.com/luma-ml/luma/internal/tensor"
)

// Loss computes a scalar training objective from model outputs and targets.
type Loss interface {
	// Name returns the canonical loss name ("mse", "bce", "cross_entropy").
	Name() string

	// Forward computes the scalar loss on tape.
	Forward(tape *autodiff.Tape, predictions, targets *tensor.Tensor) (*tensor.Tensor, error)

	// FromLogits reports whether Forward expects unnormalized scores, in
	// which case callers use Sequential.ForwardLogits.
	FromLogits() bool
}

// MSELoss computes Mean Squared Error loss.
//
// MSE = mean((predictions - targets)^2)
//
// Commonly used for regression tasks.
type MSELoss struct{}

// NewMSELoss creates a new MSE loss function.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Name returns "mse".
func (m *MSELoss) Name() string { return "mse" }

// FromLogits returns false.
func (m *MSELoss) FromLogits() bool { return false }

// Forward computes MSE loss. Shapes must match exactly.
func (m *MSELoss) Forward(tape *autodiff.Tape, predictions, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.MSE(predictions, targets)
}

// BCELoss computes binary cross-entropy over probabilities in [0, 1],
// typically produced by a final Sigmoid layer.
type BCELoss struct{}

// NewBCELoss creates a new binary cross-entropy loss.
func NewBCELoss() *BCELoss {
	return &BCELoss{}
}

// Name returns "bce".
func (b *BCELoss) Name() string { return "bce" }

// FromLogits returns false.
func (b *BCELoss) FromLogits() bool { return false }

// Forward computes BCE loss.
func (b *BCELoss) Forward(tape *autodiff.Tape, predictions, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.BCE(predictions, targets)
}

// CrossEntropyLoss computes softmax cross-entropy for multi-class
// classification.
//
// It takes logits [batch, classes] and targets as class indices
// ([batch] or [batch, 1]) or one-hot rows ([batch, classes]). Softmax is
// fused into the loss for numerical stability.
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss creates a new cross-entropy loss.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Name returns "cross_entropy".
func (c *CrossEntropyLoss) Name() string { return "cross_entropy" }

// FromLogits returns true.
func (c *CrossEntropyLoss) FromLogits() bool { return true }

// Forward computes the mean cross-entropy from logits.
func (c *CrossEntropyLoss) Forward(tape *autodiff.Tape, logits, targets *tensor.Tensor) (*tensor.Tensor, error) {
	return tape.SoftmaxCrossEntropy(logits, targets)
}

// LossByName returns the loss registered under name.
func LossByName(name string) (Loss, error) {
	switch strings.ToLower(name) {
	case "mse", "mean_squared_error":
		return NewMSELoss(), nil
	case "bce", "binary_cross_entropy":
		return NewBCELoss(), nil
	case "cross_entropy", "crossentropy", "ce":
		return NewCrossEntropyLoss(), nil
	default:
		return nil, fmt.Errorf("unknown loss %q (want mse, bce or cross_entropy)", name)
	}
}
