package autodiff

import (
	"fmt"

	"github.com/luma-ml/luma/internal/tensor"
)

// Grads maps tensors to the gradient computed for them by one backward pass.
type Grads map[*tensor.Tensor]*tensor.Tensor

// Get returns the gradient of x, or nil if none flowed to it.
func (g Grads) Get(x *tensor.Tensor) *tensor.Tensor {
	return g[x]
}

// Gradients computes dLoss/dx for every tensor x requiring gradients that
// contributes to loss, without touching any tensor's gradient buffer.
//
// Algorithm:
//  1. Seed the loss gradient with 1
//  2. Walk recorded operations in reverse creation order, starting at the
//     node that produced loss
//  3. For each operation with an incoming gradient, compute input gradients
//     using the chain rule
//  4. Sum contributions when the same tensor is used multiple times
//
// Inputs that do not require gradients are skipped.
func (t *Tape) Gradients(loss *tensor.Tensor) (Grads, error) {
	if !loss.Shape().IsScalar() {
		return nil, &GradientError{Msg: fmt.Sprintf("backward requires a scalar loss, got shape %v", loss.Shape())}
	}
	if !loss.RequiresGrad() {
		return nil, &GradientError{Msg: "loss does not require grad (no recorded operation reaches a trainable tensor)"}
	}

	grads := Grads{loss: tensor.Scalar(1)}

	start, ok := t.NodeOf(loss)
	if !ok {
		// A leaf loss is its own gradient.
		return grads, nil
	}

	for i := int(start); i >= 0; i-- {
		op := t.nodes[i]
		outGrad, hasGrad := grads[op.Output()]
		if !hasGrad {
			continue
		}

		inputGrads, err := op.Backward(outGrad, t.backend)
		if err != nil {
			return nil, fmt.Errorf("backward %s (node %d): %w", op.Kind(), i, err)
		}

		for j, input := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil || !input.RequiresGrad() {
				continue
			}
			if err := accumulate(grads, input, inputGrads[j], t.backend); err != nil {
				return nil, fmt.Errorf("backward %s (node %d): %w", op.Kind(), i, err)
			}
		}
	}

	return grads, nil
}

// Backward computes gradients of the scalar loss and adds them into the
// gradient buffer of every tensor that requires gradients. Forward values are
// never modified. Calling Backward twice on the same graph adds the gradients
// twice.
func (t *Tape) Backward(loss *tensor.Tensor) error {
	grads, err := t.Gradients(loss)
	if err != nil {
		return err
	}
	for x, g := range grads {
		if err := x.AccumulateGrad(g); err != nil {
			return &GradientError{Msg: err.Error()}
		}
	}
	return nil
}

// accumulate adds g into grads[x], allocating on first use.
func accumulate(grads Grads, x, g *tensor.Tensor, backend tensor.Backend) error {
	if !g.Shape().Equal(x.Shape()) {
		return &tensor.ShapeError{Op: "accumulate_grad", Shapes: []tensor.Shape{x.Shape(), g.Shape()}}
	}
	existing, ok := grads[x]
	if !ok {
		grads[x] = g
		return nil
	}
	sum, err := backend.Add(existing, g)
	if err != nil {
		return err
	}
	grads[x] = sum
	return nil
}
