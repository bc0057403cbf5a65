package train

import (
	"github.com/luma-ml/luma/internal/backend/cpu"
	"github.com/luma-ml/luma/internal/optim"
	"github.com/luma-ml/luma/internal/tensor"
)

// Config holds configuration for a Trainer.
type Config struct {
	Epochs    int   // Passes over the dataset (default: 10)
	BatchSize int   // Samples per optimizer step; the last batch may be smaller (default: 32)
	Seed      int64 // Shuffle seed; epoch e uses Seed+e
	Shuffle   bool  // Shuffle sample order every epoch

	// Workers is the number of shards a batch is split into for data-parallel
	// gradient computation. Values below 2 train serially.
	Workers int

	// Scheduler sets the learning rate at the start of every epoch from the
	// optimizer's initial learning rate (default: optim.Constant). An
	// optim.BatchScheduler also sets it before every batch and an
	// optim.LossScheduler observes the mean loss of every epoch.
	Scheduler optim.Scheduler

	// Backend runs the forward kernels (default: cpu.New()).
	Backend tensor.Backend
}

// DefaultConfig returns the default trainer configuration.
func DefaultConfig() Config {
	return Config{
		Epochs:    10,
		BatchSize: 32,
		Shuffle:   true,
		Workers:   1,
		Scheduler: optim.Constant{},
	}
}

func (c Config) withDefaults() Config {
	if c.Epochs == 0 {
		c.Epochs = 10
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Scheduler == nil {
		c.Scheduler = optim.Constant{}
	}
	if c.Backend == nil {
		c.Backend = cpu.New()
	}
	return c
}
