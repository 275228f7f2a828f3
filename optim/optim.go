// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/optim"
	"github.com/born-ml/deepfold/internal/tensor"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Config selects and parameterizes an optimizer by name.
type Config = optim.Config

// Errors returned for unsupported names.
var (
	ErrUnknownOptimizer = optim.ErrUnknownOptimizer
	ErrUnknownSchedule  = optim.ErrUnknownSchedule
)

// New builds the optimizer named by cfg.Name ("sgd", "rmsprop" or "adamw").
func New[B tensor.Backend](params []*nn.Parameter[B], cfg Config, backend B) (Optimizer, error) {
	return optim.New(params, cfg, backend)
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
//
// Example:
//
//	optimizer := optim.NewSGD(
//	    h.Parameters(),
//	    optim.SGDConfig{
//	        LR:       0.1,
//	        Momentum: 0.9,
//	    },
//	    backend,
//	)
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// RMSprop

// RMSprop represents the RMSprop optimizer.
type RMSprop[B tensor.Backend] = optim.RMSprop[B]

// RMSpropConfig contains configuration for RMSprop optimizer.
type RMSpropConfig = optim.RMSpropConfig

// NewRMSprop creates a new RMSprop optimizer.
func NewRMSprop[B tensor.Backend](params []*nn.Parameter[B], config RMSpropConfig, backend B) *RMSprop[B] {
	return optim.NewRMSprop(params, config, backend)
}

// AdamW (Adam with decoupled weight decay)

// AdamW represents the AdamW optimizer.
type AdamW[B tensor.Backend] = optim.AdamW[B]

// AdamWConfig contains configuration for AdamW optimizer.
type AdamWConfig = optim.AdamWConfig

// NewAdamW creates a new AdamW optimizer with bias correction.
//
// Example:
//
//	optimizer := optim.NewAdamW(
//	    h.Parameters(),
//	    optim.AdamWConfig{
//	        LR:          0.001,
//	        Betas:       [2]float32{0.9, 0.999},
//	        WeightDecay: 0.01,
//	    },
//	    backend,
//	)
func NewAdamW[B tensor.Backend](params []*nn.Parameter[B], config AdamWConfig, backend B) *AdamW[B] {
	return optim.NewAdamW(params, config, backend)
}

// Schedules

// Scheduler sets the optimizer learning rate at the start of every epoch.
type Scheduler = optim.Scheduler

// ScheduleConfig selects and parameterizes a schedule by name.
type ScheduleConfig = optim.ScheduleConfig

// NewSchedule builds the schedule named by cfg.Name ("step", "exponential", "linear" or
// "cosine") driving optimizer.
func NewSchedule(optimizer Optimizer, cfg ScheduleConfig) (Scheduler, error) {
	return optim.NewSchedule(optimizer, cfg)
}
