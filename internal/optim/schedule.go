package optim

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownSchedule is returned by NewSchedule for an unsupported schedule name.
var ErrUnknownSchedule = errors.New("unknown lr schedule")

// Scheduler sets the optimizer's learning rate once per epoch.
type Scheduler interface {
	// Step sets the learning rate for the given (0-based) epoch.
	Step(epoch int)

	// LR returns the learning rate for epoch without touching the optimizer.
	LR(epoch int) float32
}

// ScheduleConfig parameterizes NewSchedule.
type ScheduleConfig struct {
	Name         string  // "step", "linear", "cosine" or "exponential"
	BaseLR       float32 // Learning rate after warmup
	EndLR        float32 // Floor for linear and cosine decay
	WarmupEpochs int     // Linear warmup from BaseLR/(warmup+1) up to BaseLR
	TotalEpochs  int     // Horizon for linear and cosine decay
	Gamma        float32 // Decay factor for step and exponential (default: 0.8 exponential, 0.1 step)
	StepSize     int     // Epochs between decays for step (default: 30)
}

type schedule struct {
	cfg       ScheduleConfig
	optimizer Optimizer
	decay     func(e int) float32
}

// NewSchedule builds a per-epoch scheduler driving optimizer.
func NewSchedule(optimizer Optimizer, cfg ScheduleConfig) (Scheduler, error) {
	s := &schedule{cfg: cfg, optimizer: optimizer}
	span := max(cfg.TotalEpochs-cfg.WarmupEpochs, 1)

	switch strings.ToLower(cfg.Name) {
	case "exponential":
		gamma := cfg.Gamma
		if gamma == 0 {
			gamma = 0.8
		}
		s.decay = func(e int) float32 {
			return cfg.BaseLR * float32(math.Pow(float64(gamma), float64(e)))
		}
	case "step":
		gamma, stepSize := cfg.Gamma, cfg.StepSize
		if gamma == 0 {
			gamma = 0.1
		}
		if stepSize <= 0 {
			stepSize = 30
		}
		s.decay = func(e int) float32 {
			return cfg.BaseLR * float32(math.Pow(float64(gamma), float64(e/stepSize)))
		}
	case "linear":
		s.decay = func(e int) float32 {
			frac := min(float32(e)/float32(span), 1)
			return cfg.BaseLR + (cfg.EndLR-cfg.BaseLR)*frac
		}
	case "cosine":
		s.decay = func(e int) float32 {
			frac := min(float64(e)/float64(span), 1)
			return cfg.EndLR + (cfg.BaseLR-cfg.EndLR)*float32(0.5*(1+math.Cos(math.Pi*frac)))
		}
	default:
		return nil, fmt.Errorf("%w: %q (want step, linear, cosine or exponential)", ErrUnknownSchedule, cfg.Name)
	}
	return s, nil
}

// LR returns the learning rate for epoch.
func (s *schedule) LR(epoch int) float32 {
	if epoch < s.cfg.WarmupEpochs {
		return s.cfg.BaseLR * float32(epoch+1) / float32(s.cfg.WarmupEpochs+1)
	}
	return s.decay(epoch - s.cfg.WarmupEpochs)
}

// Step sets the optimizer's learning rate for epoch.
func (s *schedule) Step(epoch int) {
	s.optimizer.SetLR(s.LR(epoch))
}
