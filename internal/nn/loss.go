package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/deepfold/internal/tensor"
)

// BCEWithLogitsLoss computes binary cross-entropy on raw logits, averaged over every
// element. Used for multi-label targets where each label is an independent yes/no.
//
// Per element, in the numerically stable form:
//
//	loss(z, y) = max(z, 0) - z*y + log(1 + exp(-|z|))
//
// Gradient:
//
//	∂L/∂z = (σ(z) - y) / count
type BCEWithLogitsLoss[B tensor.Backend] struct {
	backend B
}

// NewBCEWithLogitsLoss creates the loss function.
func NewBCEWithLogitsLoss[B tensor.Backend](backend B) *BCEWithLogitsLoss[B] {
	return &BCEWithLogitsLoss[B]{backend: backend}
}

// Forward returns the mean loss as a single-element tensor of shape [1].
//
// logits and targets must have the same shape; both are flattened.
func (c *BCEWithLogitsLoss[B]) Forward(logits, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	c.check(logits, targets)

	z := logits.Data()
	y := targets.Data()
	var sum float64
	for i := range z {
		zi := float64(z[i])
		sum += math.Max(zi, 0) - zi*float64(y[i]) + math.Log1p(math.Exp(-math.Abs(zi)))
	}
	mean := float32(0)
	if len(z) > 0 {
		mean = float32(sum / float64(len(z)))
	}
	return tensor.Full[float32](tensor.Shape{1}, mean, c.backend)
}

// Backward returns dL/dlogits for the mean-reduced loss.
func (c *BCEWithLogitsLoss[B]) Backward(logits, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	c.check(logits, targets)

	grad := tensor.Zeros[float32](logits.Shape(), c.backend)
	g := grad.Data()
	z := logits.Data()
	y := targets.Data()
	n := float32(len(z))
	for i := range g {
		g[i] = (Sigmoid(z[i]) - y[i]) / n
	}
	return grad
}

func (c *BCEWithLogitsLoss[B]) check(logits, targets *tensor.Tensor[float32, B]) {
	if !logits.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("BCEWithLogitsLoss: logits %v and targets %v must have the same shape", logits.Shape(), targets.Shape()))
	}
}

// Sigmoid is the logistic function, computed without overflow for large |z|.
func Sigmoid(z float32) float32 {
	if z >= 0 {
		return float32(1 / (1 + math.Exp(-float64(z))))
	}
	e := math.Exp(float64(z))
	return float32(e / (1 + e))
}

// SigmoidTensor applies Sigmoid element-wise, returning a new tensor.
func SigmoidTensor[B tensor.Backend](x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out := x.Clone()
	data := out.Data()
	for i, v := range data {
		data[i] = Sigmoid(v)
	}
	return out
}
