package nn

import (
	"fmt"

	"github.com/born-ml/deepfold/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Gradients accumulate across Backward calls until ZeroGrad, which is what gradient
// accumulation over several mini-batches relies on.
type Parameter[B tensor.Backend] struct {
	name   string                     // Parameter name (e.g., "weight", "bias")
	tensor *tensor.Tensor[float32, B] // The parameter tensor
	grad   *tensor.Tensor[float32, B] // Accumulated gradient, nil before the first backward
}

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the accumulated gradient, or nil if none has been computed.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad replaces the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.grad = grad
}

// AccumulateGrad adds g to the stored gradient.
func (p *Parameter[B]) AccumulateGrad(g *tensor.Tensor[float32, B]) {
	if !g.Shape().Equal(p.tensor.Shape()) {
		panic(fmt.Sprintf("parameter %s: gradient shape %v does not match %v", p.name, g.Shape(), p.tensor.Shape()))
	}
	if p.grad == nil {
		p.grad = g.Clone()
		return
	}
	dst := p.grad.Data()
	for i, v := range g.Data() {
		dst[i] += v
	}
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}
