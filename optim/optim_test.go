// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim_test

import (
	"testing"

	"github.com/luma-ml/luma/nn"
	"github.com/luma-ml/luma/optim"
	"github.com/luma-ml/luma/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGDStep(t *testing.T) {
	w, err := tensor.FromSlice([]float64{1, 2}, tensor.Shape{2})
	require.NoError(t, err)
	p := nn.NewParameter("w", w)
	g, err := tensor.FromSlice([]float64{1, -1}, tensor.Shape{2})
	require.NoError(t, err)
	require.NoError(t, w.AccumulateGrad(g))

	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.5})
	require.NoError(t, opt.Step())
	assert.InDeltaSlice(t, []float64{0.5, 2.5}, w.Data(), 1e-12)
}

func TestSchedulerByName(t *testing.T) {
	s, err := optim.SchedulerByName("step", optim.SchedulerConfig{StepSize: 1, Gamma: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, s.LR(2, 1), 1e-12)

	_, err = optim.SchedulerByName("cosine", optim.SchedulerConfig{})
	assert.Error(t, err)
}

func TestCyclicAndPlateau(t *testing.T) {
	c := optim.CyclicLR{MaxLR: 0.3, StepSize: 2, Mode: optim.Triangular}
	assert.InDelta(t, 0.3, c.BatchLR(2, 0.1), 1e-12)

	r := optim.NewReduceOnPlateau(1, 0.5, 0)
	var s optim.LossScheduler = r
	s.LR(0, 0.2)
	s.Observe(0, 1)
	s.Observe(1, 1)
	assert.InDelta(t, 0.1, s.LR(2, 0.2), 1e-12)
}
