package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/deepfold/internal/tensor"
)

// Dropout zeroes elements with probability p during training and scales survivors by
// 1/(1-p) (inverted dropout). In eval mode, or with p == 0, it is the identity.
//
// The mask of the last training Forward is kept for Backward.
type Dropout[B tensor.Backend] struct {
	p        float32
	training bool
	rng      *rand.Rand
	mask     []float32
}

// NewDropout creates a dropout layer in training mode.
func NewDropout[B tensor.Backend](p float32, rng *rand.Rand) *Dropout[B] {
	if p < 0 || p > 1 {
		panic(fmt.Sprintf("Dropout: probability must be in [0, 1], got %v", p))
	}
	return &Dropout[B]{p: p, training: true, rng: rng}
}

// P returns the drop probability.
func (d *Dropout[B]) P() float32 {
	return d.p
}

// Train switches between training (true) and eval (false) behavior.
func (d *Dropout[B]) Train(training bool) {
	d.training = training
	d.mask = nil
}

// Training reports whether the layer is in training mode.
func (d *Dropout[B]) Training() bool {
	return d.training
}

// Forward applies dropout.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.p == 0 {
		d.mask = nil
		return input
	}

	mask := make([]float32, input.NumElements())
	if d.p < 1 {
		keep := 1 / (1 - d.p)
		for i := range mask {
			if d.rng.Float32() >= d.p {
				mask[i] = keep
			}
		}
	}
	d.mask = mask

	out := input.Clone()
	data := out.Data()
	for i := range data {
		data[i] *= mask[i]
	}
	return out
}

// Backward routes the upstream gradient through the last mask. The head has no
// parameters below its dropout and never calls it; stacks that do (Linear, Dropout,
// Linear) chain it between the two Linear backward passes.
func (d *Dropout[B]) Backward(gradOutput *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if d.mask == nil {
		return gradOutput
	}
	out := gradOutput.Clone()
	data := out.Data()
	for i := range data {
		data[i] *= d.mask[i]
	}
	return out
}

// Parameters returns nil (dropout has no trainable parameters).
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}
