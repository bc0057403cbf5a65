// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - Schedulers: learning-rate schedules applied per epoch
//
// Design inspired by PyTorch's torch.optim.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{
//	    LR: 0.001,
//	})
//
//	for epoch := range epochs {
//	    tape.Reset()
//	    output, _ := model.Forward(tape, input)
//	    loss, _ := lossFn.Forward(tape, output, targets)
//
//	    optimizer.ZeroGrad()
//	    _ = tape.Backward(loss)
//	    _ = optimizer.Step()
//	}
package optim

import (
	"fmt"

	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// Optimizers update model parameters in place from the gradients stored in
// the parameters' gradient buffers.
type Optimizer interface {
	// Step applies one gradient update to all parameters.
	// A parameter without a gradient buffer is treated as having a zero
	// gradient.
	Step() error

	// ZeroGrad clears all parameter gradients.
	//
	// This should be called before each backward pass to prevent
	// gradient accumulation from previous iterations.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64

	// SetLR updates the learning rate (used by schedulers).
	SetLR(lr float64)

	// StateDict returns the optimizer's internal buffers for serialization.
	StateDict() map[string]*tensor.Tensor
}

// gradData returns the gradient values of param, or nil when it has none.
func gradData(param *nn.Parameter) []float64 {
	if g := param.Grad(); g != nil {
		return g.Data()
	}
	return nil
}

// newBuffers allocates one zeroed buffer per parameter.
func newBuffers(params []*nn.Parameter) []*tensor.Tensor {
	buffers := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		buffers[i] = tensor.ZerosLike(p.Tensor())
	}
	return buffers
}

// loadBuffers copies prefix.<i> entries of stateDict into buffers.
// Missing entries leave the buffer unchanged.
func loadBuffers(prefix string, buffers []*tensor.Tensor, stateDict map[string]*tensor.Tensor) error {
	for i, buf := range buffers {
		src, ok := stateDict[fmt.Sprintf("%s.%d", prefix, i)]
		if !ok {
			continue
		}
		if err := buf.CopyFrom(src); err != nil {
			return fmt.Errorf("%s shape mismatch for parameter %d: %w", prefix, i, err)
		}
	}
	return nil
}

// checkParams reports the first parameter that became non-finite.
func checkParams(name string, params []*nn.Parameter) error {
	for _, p := range params {
		if err := tensor.CheckFinite(name, p.Tensor()); err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name(), err)
		}
	}
	return nil
}
