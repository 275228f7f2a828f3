// Package nn implements the neural network building blocks used by the classification head:
// parameters, a linear layer, dropout, the multi-label loss and training checkpoints.
//
// There is no autodiff tape: every layer exposes a closed-form Backward that accumulates
// parameter gradients for the most recent Forward.
package nn

import (
	"github.com/born-ml/deepfold/internal/tensor"
)

// Module is the base interface for neural network components.
//
// Every module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter[B]
}

// Stateful is implemented by anything whose tensors can be saved and restored.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}
