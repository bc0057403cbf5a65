package optim

import (
	"fmt"
	"math"

	"github.com/luma-ml/luma/internal/nn"
	"github.com/luma-ml/luma/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSprop and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{
//	    LR:    0.001,
//	    Betas: [2]float64{0.9, 0.999},
//	    Eps:   1e-8,
//	})
type Adam struct {
	params []*nn.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int              // Timestep for bias correction
	m      []*tensor.Tensor // First moment estimates, one per parameter
	v      []*tensor.Tensor // Second moment estimates, one per parameter
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	// Set defaults
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      newBuffers(params),
		v:      newBuffers(params),
	}
}

// Step performs a single optimization step using Adam algorithm.
//
// Applies Adam update to all parameters:
//  1. Update biased first moment estimate
//  2. Update biased second moment estimate
//  3. Compute bias-corrected moment estimates
//  4. Update parameters
func (a *Adam) Step() error {
	// Increment timestep
	a.t++

	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for i, param := range a.params {
		gradValues := gradData(param)
		mData := a.m[i].Data()
		vData := a.v[i].Data()
		paramData := param.Tensor().Data()

		for j := range paramData {
			g := 0.0
			if gradValues != nil {
				g = gradValues[j]
			}

			mData[j] = a.beta1*mData[j] + (1.0-a.beta1)*g
			vData[j] = a.beta2*vData[j] + (1.0-a.beta2)*g*g

			mHat := mData[j] / biasCorrection1
			vHat := vData[j] / biasCorrection2

			paramData[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
	return checkParams("adam", a.params)
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// Steps returns the number of steps taken.
func (a *Adam) Steps() int {
	return a.t
}

// StateDict returns the optimizer state for serialization.
//
// State keys: "m.{i}", "v.{i}" for the moment buffers and "step" for the
// timestep.
func (a *Adam) StateDict() map[string]*tensor.Tensor {
	stateDict := make(map[string]*tensor.Tensor)
	for i := range a.params {
		stateDict[fmt.Sprintf("m.%d", i)] = a.m[i]
		stateDict[fmt.Sprintf("v.%d", i)] = a.v[i]
	}
	stateDict["step"] = tensor.Scalar(float64(a.t))
	return stateDict
}

// LoadStateDict restores moment buffers and the timestep.
func (a *Adam) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	if err := loadBuffers("m", a.m, stateDict); err != nil {
		return err
	}
	if err := loadBuffers("v", a.v, stateDict); err != nil {
		return err
	}
	if step, ok := stateDict["step"]; ok {
		t, err := step.Item()
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		a.t = int(t)
	}
	return nil
}
