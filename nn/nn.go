// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Stateful is implemented by anything whose tensors can be saved and restored.
type Stateful = nn.Stateful

// Parameter represents a trainable parameter in a neural network.
//
// Methods:
//
//	Name() string
//	    Returns the parameter name (e.g., "weight", "bias").
//
//	Tensor() *tensor.Tensor[float32, B]
//	    Returns the parameter tensor.
//
//	Grad() *tensor.Tensor[float32, B]
//	    Returns the gradient tensor (nil if not computed yet).
//
//	ZeroGrad()
//	    Clears the gradient tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization drawn from rng.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(1280, 500, rand.New(rand.NewSource(1)), backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, rng, backend)
}

// Dropout zeroes elements with probability p in training mode and is the identity in
// eval mode.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// NewDropout creates a dropout layer drawing its masks from rng.
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand) *Dropout[B] {
	return nn.NewDropout[B](p, rng)
}

// Loss functions

// BCEWithLogitsLoss is binary cross-entropy over pre-sigmoid logits, averaged over every
// element.
type BCEWithLogitsLoss[B tensor.Backend] = nn.BCEWithLogitsLoss[B]

// NewBCEWithLogitsLoss creates the multi-label loss.
func NewBCEWithLogitsLoss[B tensor.Backend](backend B) *BCEWithLogitsLoss[B] {
	return nn.NewBCEWithLogitsLoss(backend)
}

// Sigmoid returns 1 / (1 + exp(-z)).
func Sigmoid(z float32) float32 {
	return nn.Sigmoid(z)
}

// Checkpoints

// Checkpoint is a training snapshot stored as one SafeTensors file.
type Checkpoint = nn.Checkpoint

// OptimizerState is an optimizer whose buffers can be stored in a checkpoint.
type OptimizerState = nn.OptimizerState

// LoadCheckpoint restores model and, when non-nil, optimizer from path.
//
// Example:
//
//	ckpt, err := nn.LoadCheckpoint("best.safetensors", h, nil)
func LoadCheckpoint(path string, model Stateful, optimizer OptimizerState) (*Checkpoint, error) {
	return nn.LoadCheckpoint(path, model, optimizer)
}

// ReadCheckpointMetadata returns the metadata of a checkpoint without loading tensors.
func ReadCheckpointMetadata(path string) (map[string]string, error) {
	return nn.ReadCheckpointMetadata(path)
}
