// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers and learning-rate schedules used to train the
// classification head.
//
// # Overview
//
// This package contains:
//   - SGD: with momentum and L2 weight decay
//   - RMSprop: with momentum and L2 weight decay
//   - AdamW: Adam with decoupled weight decay
//   - Schedulers: step, exponential, linear and cosine decay with linear warmup
//
// Parameters whose names contain an entry of NoDecay (by default "bias") are exempt
// from weight decay.
//
// # Basic Usage
//
//	optimizer, err := optim.New(h.Parameters(), optim.Config{
//	    Name:        "adamw",
//	    LR:          1e-3,
//	    WeightDecay: 1e-2,
//	    NoDecay:     []string{"bias"},
//	}, backend)
//
//	scheduler, err := optim.NewSchedule(optimizer, optim.ScheduleConfig{
//	    Name:         "cosine",
//	    BaseLR:       1e-3,
//	    WarmupEpochs: 2,
//	    TotalEpochs:  20,
//	})
//
// # Training Loop Pattern
//
//	for epoch := range numEpochs {
//	    scheduler.Step(epoch)
//	    for _, batch := range batches {
//	        // 1. Forward pass with labels
//	        out, _ := h.Compute(batch.Embeddings, batch.Lengths, batch.Labels)
//
//	        // 2. Closed-form gradients
//	        _ = h.Backward(out)
//
//	        // 3. Update parameters and clear gradients
//	        optimizer.Step()
//	        optimizer.ZeroGrad()
//	    }
//	}
package optim
