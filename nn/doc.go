// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers behind the classification head.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, Dropout
//   - Loss: BCEWithLogitsLoss (multi-label, mean reduction)
//   - Utilities: Module and Stateful interfaces, Parameter
//   - Checkpoints: SafeTensors training snapshots with a checksum
//
// Layers compute their gradients in closed form. Call Backward with the tensors of the
// last Forward; gradients accumulate on each Parameter until ZeroGrad.
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/deepfold/backend/cpu"
//	    "github.com/born-ml/deepfold/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    rng := rand.New(rand.NewSource(42))
//
//	    layer := nn.NewLinear(1280, 500, rng, backend)
//	    loss := nn.NewBCEWithLogitsLoss(backend)
//
//	    logits := layer.Forward(pooled)
//	    value := loss.Forward(logits, labels)
//	    layer.Backward(pooled, loss.Backward(logits, labels))
//	}
package nn
