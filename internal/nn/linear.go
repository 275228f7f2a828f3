package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/deepfold/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a new Linear layer drawing its initial weights from rng.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, weightShape, rng, backend))
	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	l.checkInput("Forward", input)

	output := input.MatMul(l.weight.Tensor().Transpose())
	return output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
}

// Backward accumulates dL/dW and dL/db for the given input and upstream gradient and
// returns dL/dx.
//
//	dW = gradOutput.T @ input   [out, in]
//	db = sum_rows(gradOutput)   [out]
//	dx = gradOutput @ W         [batch, in]
//
// dx is only needed when layers with parameters sit below this one.
func (l *Linear[B]) Backward(input, gradOutput *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	l.checkInput("Backward", input)
	gs := gradOutput.Shape()
	if len(gs) != 2 || gs[0] != input.Shape()[0] || gs[1] != l.outFeatures {
		panic(fmt.Sprintf("Linear.Backward: gradient shape %v does not match [%d, %d]", gs, input.Shape()[0], l.outFeatures))
	}

	l.weight.AccumulateGrad(gradOutput.Transpose().MatMul(input))
	l.bias.AccumulateGrad(gradOutput.SumDim(0, false))
	return gradOutput.MatMul(l.weight.Tensor())
}

func (l *Linear[B]) checkInput(op string, input *tensor.Tensor[float32, B]) {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.%s: expected 2D input [batch, features], got shape %v", op, inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.%s: expected input with %d features, got %d", op, l.inFeatures, inputShape[1]))
	}
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// StateDict returns a map of parameter names to raw tensors.
func (l *Linear[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight": l.weight.Tensor().Raw(),
		"bias":   l.bias.Tensor().Raw(),
	}
}

// LoadStateDict loads parameters from a state dictionary.
func (l *Linear[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadInto(stateDict, "weight", l.weight, tensor.Shape{l.outFeatures, l.inFeatures}); err != nil {
		return err
	}
	return loadInto(stateDict, "bias", l.bias, tensor.Shape{l.outFeatures})
}

func loadInto[B tensor.Backend](stateDict map[string]*tensor.RawTensor, name string, p *Parameter[B], want tensor.Shape) error {
	raw, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("missing %s in state dict", name)
	}
	if !raw.Shape().Equal(want) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", name, want, raw.Shape())
	}
	if raw.DType() != tensor.Float32 {
		return fmt.Errorf("%s dtype mismatch: expected float32, got %v", name, raw.DType())
	}
	copy(p.Tensor().Data(), raw.AsFloat32())
	return nil
}
