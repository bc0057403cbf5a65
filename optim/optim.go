// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/nn"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	model := nn.NewLinear(784, 10, rng)
//	optimizer := optim.NewSGD(
//	    model.Parameters(),
//	    optim.SGDConfig{
//	        LR:       0.01,
//	        Momentum: 0.9,
//	    },
//	)
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
//
// Example:
//
//	optimizer := optim.NewAdam(
//	    model.Parameters(),
//	    optim.AdamConfig{
//	        LR:    0.001,
//	        Betas: [2]float64{0.9, 0.999},
//	        Eps:   1e-8,
//	    },
//	)
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// Learning rate schedules

// Scheduler maps an epoch and the initial learning rate to the rate used
// for that epoch.
type Scheduler = optim.Scheduler

// SchedulerConfig holds the knobs of every scheduler kind.
type SchedulerConfig = optim.SchedulerConfig

// LossScheduler is a Scheduler that adapts to the epoch loss.
type LossScheduler = optim.LossScheduler

// BatchScheduler is a Scheduler that sets the rate before every batch.
type BatchScheduler = optim.BatchScheduler

// ReduceOnPlateau lowers the learning rate when the loss stops improving.
type ReduceOnPlateau = optim.ReduceOnPlateau

// NewReduceOnPlateau creates a ReduceOnPlateau scheduler.
//
// Example:
//
//	sched := optim.NewReduceOnPlateau(5, 0.1, 1e-5)
func NewReduceOnPlateau(patience int, factor, minLR float64) *ReduceOnPlateau {
	return optim.NewReduceOnPlateau(patience, factor, minLR)
}

// CyclicLR cycles the learning rate between the base rate and MaxLR.
type CyclicLR = optim.CyclicLR

// CyclicMode selects the amplitude policy of a CyclicLR.
type CyclicMode = optim.CyclicMode

// Cyclic modes.
const (
	Triangular  = optim.Triangular
	Triangular2 = optim.Triangular2
	ExpRange    = optim.ExpRange
)

// SchedulerByName returns the scheduler registered under name: constant,
// step, exponential, cosine, time, plateau or cyclic.
func SchedulerByName(name string, config SchedulerConfig) (Scheduler, error) {
	return optim.SchedulerByName(name, config)
}
