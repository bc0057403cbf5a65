package optim

import (
	"fmt"

	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule:
//
//	velocity = momentum * velocity - lr * gradient
//	param = param + velocity
//
// With momentum 0 this reduces to param = param - lr * gradient.
//
// Momentum helps accelerate SGD in relevant directions and dampens oscillations.
//
// Example:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities []*tensor.Tensor // One per parameter, allocated at construction
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
//
// Parameters:
//   - params: Model parameters to optimize
//   - config: SGD configuration (LR, Momentum)
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: newBuffers(params),
	}
}

// Step performs a single optimization step.
func (s *SGD) Step() error {
	for i, param := range s.params {
		g := gradData(param)
		v := s.velocities[i].Data()
		p := param.Tensor().Data()
		for j := range p {
			grad := 0.0
			if g != nil {
				grad = g[j]
			}
			v[j] = s.momentum*v[j] - s.lr*grad
			p[j] += v[j]
		}
	}
	return checkParams("sgd", s.params)
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// Momentum returns the momentum factor.
func (s *SGD) Momentum() float64 {
	return s.momentum
}

// StateDict returns the optimizer state for serialization.
//
// State keys: "velocity.{param_index}" -> velocity tensor.
func (s *SGD) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for i, velocity := range s.velocities {
		stateDict[fmt.Sprintf("velocity.%d", i)] = velocity
	}
	return stateDict
}

// LoadStateDict restores velocity buffers.
//
// Returns an error if velocity shapes don't match parameter shapes.
func (s *SGD) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	return loadBuffers("velocity", s.velocities, stateDict)
}
