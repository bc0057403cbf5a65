package optim

import (
	"fmt"
	"math"
)

// Scheduler maps an epoch index (0-based) and the base learning rate to the
// learning rate used during that epoch.
//
// Example:
//
//	sched := optim.StepDecay{StepSize: 10, Gamma: 0.5}
//	for epoch := range epochs {
//	    optimizer.SetLR(sched.LR(epoch, baseLR))
//	    ...
//	}
type Scheduler interface {
	LR(epoch int, base float64) float64
}

// Constant keeps the base learning rate.
type Constant struct{}

// LR returns base.
func (Constant) LR(_ int, base float64) float64 {
	return base
}

// StepDecay multiplies the learning rate by Gamma every StepSize epochs.
//
//	lr = base * gamma^floor(epoch / step_size)
type StepDecay struct {
	StepSize int
	Gamma    float64
}

// LR implements Scheduler.
func (s StepDecay) LR(epoch int, base float64) float64 {
	if s.StepSize <= 0 {
		return base
	}
	return base * math.Pow(s.Gamma, float64(epoch/s.StepSize))
}

// ExponentialDecay multiplies the learning rate by Gamma every epoch.
//
//	lr = base * gamma^epoch
type ExponentialDecay struct {
	Gamma float64
}

// LR implements Scheduler.
func (s ExponentialDecay) LR(epoch int, base float64) float64 {
	return base * math.Pow(s.Gamma, float64(epoch))
}

// CosineAnnealing anneals the learning rate from base to EtaMin over TMax
// epochs following a half cosine, then holds EtaMin.
//
//	lr = eta_min + (base - eta_min) * (1 + cos(pi * epoch / t_max)) / 2
type CosineAnnealing struct {
	TMax   int
	EtaMin float64
}

// LR implements Scheduler.
func (s CosineAnnealing) LR(epoch int, base float64) float64 {
	if s.TMax <= 0 {
		return base
	}
	if epoch >= s.TMax {
		return s.EtaMin
	}
	return s.EtaMin + (base-s.EtaMin)*(1+math.Cos(math.Pi*float64(epoch)/float64(s.TMax)))/2
}

// TimeDecay divides the learning rate by a linearly growing factor.
//
//	lr = base / (1 + decay * epoch)
type TimeDecay struct {
	Decay float64
}

// LR implements Scheduler.
func (s TimeDecay) LR(epoch int, base float64) float64 {
	return base / (1 + s.Decay*float64(epoch))
}

// LossScheduler is implemented by schedulers that adapt to the training
// loss. Observe receives the mean loss at the end of every epoch and Reset
// is called when training starts.
type LossScheduler interface {
	Scheduler
	Observe(epoch int, loss float64)
	Reset()
}

// BatchScheduler is implemented by schedulers that change the learning rate
// at every optimizer step. Step counts batches from the start of training.
type BatchScheduler interface {
	Scheduler
	BatchLR(step int, base float64) float64
}

// ReduceOnPlateau multiplies the learning rate by Factor once the epoch loss
// has not improved for Patience consecutive epochs, never going below MinLR.
type ReduceOnPlateau struct {
	Patience int
	Factor   float64
	MinLR    float64

	lr   float64 // Current rate, 0 until the first epoch
	best float64
	wait int
}

// NewReduceOnPlateau creates a ReduceOnPlateau scheduler.
func NewReduceOnPlateau(patience int, factor, minLR float64) *ReduceOnPlateau {
	r := &ReduceOnPlateau{Patience: patience, Factor: factor, MinLR: minLR}
	r.Reset()
	return r
}

// LR returns the current rate, starting at base.
func (r *ReduceOnPlateau) LR(_ int, base float64) float64 {
	if r.lr == 0 {
		r.lr = base
	}
	return r.lr
}

// Observe implements LossScheduler.
func (r *ReduceOnPlateau) Observe(_ int, loss float64) {
	if loss < r.best {
		r.best = loss
		r.wait = 0
		return
	}
	r.wait++
	if r.wait >= r.Patience && r.lr > 0 {
		r.wait = 0
		r.lr = math.Max(r.lr*r.Factor, r.MinLR)
	}
}

// Reset implements LossScheduler.
func (r *ReduceOnPlateau) Reset() {
	r.lr = 0
	r.best = math.Inf(1)
	r.wait = 0
}

// CyclicMode selects how the amplitude of a CyclicLR changes between cycles.
type CyclicMode int

// Cyclic modes.
const (
	Triangular  CyclicMode = iota // Constant amplitude
	Triangular2                   // Amplitude halves every cycle
	ExpRange                      // Amplitude scales by gamma^step
)

var cyclicModes = map[string]CyclicMode{
	"triangular":  Triangular,
	"triangular2": Triangular2,
	"exp_range":   ExpRange,
}

// CyclicLR moves the learning rate linearly between the base rate and MaxLR
// and back, StepSize batches in each direction.
//
//	cycle = floor(step / (2 * step_size))
//	x     = 1 - |step / step_size - 2 * cycle - 1|
//	lr    = base + (max_lr - base) * x * scale
//
// where scale is 1 (triangular), 1/2^cycle (triangular2) or gamma^step
// (exp_range).
type CyclicLR struct {
	MaxLR    float64
	StepSize int
	Mode     CyclicMode
	Gamma    float64 // exp_range only
}

// LR returns the rate of the first batch of a cycle, base.
func (c CyclicLR) LR(_ int, base float64) float64 {
	return base
}

// BatchLR implements BatchScheduler.
func (c CyclicLR) BatchLR(step int, base float64) float64 {
	if c.StepSize <= 0 {
		return base
	}
	cycle := step / (2 * c.StepSize)
	x := 1 - math.Abs(float64(step)/float64(c.StepSize)-float64(2*cycle)-1)
	scale := 1.0
	switch c.Mode {
	case Triangular2:
		scale = 1 / math.Pow(2, float64(cycle))
	case ExpRange:
		scale = math.Pow(c.Gamma, float64(step))
	}
	return base + (c.MaxLR-base)*x*scale
}

// SchedulerConfig holds the knobs of every scheduler kind; only the fields
// used by the chosen kind are read.
type SchedulerConfig struct {
	StepSize int     // step: epochs between decays (default: 10); cyclic: batches per half cycle (default: 10)
	Gamma    float64 // step, exponential, cyclic exp_range: decay factor (default: 0.1, 0.95, 0.999)
	TMax     int     // cosine: annealing period in epochs
	EtaMin   float64 // cosine: final learning rate
	Decay    float64 // time: decay rate (default: 0.01)
	Factor   float64 // plateau: multiplier applied on a plateau (default: 0.1)
	Patience int     // plateau: epochs without improvement before reducing (default: 5)
	MinLR    float64 // plateau: lower bound of the learning rate
	MaxLR    float64 // cyclic: upper bound of the learning rate
	Mode     string  // cyclic: triangular, triangular2 or exp_range (default: triangular)
}

// SchedulerByName returns the scheduler registered under name.
//
// Supported names: constant, step, exponential, cosine, time, plateau,
// cyclic. Plateau schedulers are stateful and must not be shared between
// concurrent trainings.
func SchedulerByName(name string, config SchedulerConfig) (Scheduler, error) {
	switch name {
	case "", "constant":
		return Constant{}, nil
	case "step":
		if config.StepSize == 0 {
			config.StepSize = 10
		}
		if config.Gamma == 0 {
			config.Gamma = 0.1
		}
		if config.StepSize < 0 {
			return nil, fmt.Errorf("step scheduler: step_size must be positive, got %d", config.StepSize)
		}
		return StepDecay{StepSize: config.StepSize, Gamma: config.Gamma}, nil
	case "exponential":
		if config.Gamma == 0 {
			config.Gamma = 0.95
		}
		return ExponentialDecay{Gamma: config.Gamma}, nil
	case "cosine":
		if config.TMax <= 0 {
			return nil, fmt.Errorf("cosine scheduler: t_max must be positive, got %d", config.TMax)
		}
		return CosineAnnealing{TMax: config.TMax, EtaMin: config.EtaMin}, nil
	case "time":
		if config.Decay == 0 {
			config.Decay = 0.01
		}
		return TimeDecay{Decay: config.Decay}, nil
	case "plateau":
		if config.Factor == 0 {
			config.Factor = 0.1
		}
		if config.Patience == 0 {
			config.Patience = 5
		}
		if !(config.Factor > 0 && config.Factor < 1) {
			return nil, fmt.Errorf("plateau scheduler: factor must be in (0, 1), got %v", config.Factor)
		}
		if config.Patience < 0 {
			return nil, fmt.Errorf("plateau scheduler: patience must be positive, got %d", config.Patience)
		}
		return NewReduceOnPlateau(config.Patience, config.Factor, config.MinLR), nil
	case "cyclic":
		if config.StepSize == 0 {
			config.StepSize = 10
		}
		if config.Gamma == 0 {
			config.Gamma = 0.999
		}
		if config.Mode == "" {
			config.Mode = "triangular"
		}
		mode, ok := cyclicModes[config.Mode]
		if !ok {
			return nil, fmt.Errorf("cyclic scheduler: unknown mode %q (want triangular, triangular2 or exp_range)", config.Mode)
		}
		if !(config.MaxLR > 0) {
			return nil, fmt.Errorf("cyclic scheduler: max_lr must be positive, got %v", config.MaxLR)
		}
		if config.StepSize < 0 {
			return nil, fmt.Errorf("cyclic scheduler: step_size must be positive, got %d", config.StepSize)
		}
		return CyclicLR{MaxLR: config.MaxLR, StepSize: config.StepSize, Mode: mode, Gamma: config.Gamma}, nil
	default:
		return nil, fmt.Errorf("unknown scheduler %q (want constant, step, exponential, cosine, time, plateau or cyclic)", name)
	}
}
