// Package optim implements the optimizers and learning-rate schedules used to train the
// classification head.
//
// Optimizers read gradients accumulated on nn.Parameter by the layers' Backward methods:
//
//	optimizer := optim.NewAdamW(head.Parameters(), optim.AdamWConfig{LR: 1e-3}, backend)
//
//	for step, batch := range batches {
//	    out, _ := head.Compute(batch.Embeddings, batch.Lengths, batch.Labels)
//	    head.Backward(out)
//	    if (step+1)%accumulation == 0 {
//	        optimizer.Step()
//	        optimizer.ZeroGrad()
//	    }
//	}
package optim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/tensor"
)

// ErrUnknownOptimizer is returned by New for an unsupported optimizer name.
var ErrUnknownOptimizer = errors.New("unknown optimizer")

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies the accumulated gradients to all parameters.
	// Parameters without a gradient are skipped.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate (used by schedulers).
	SetLR(lr float32)

	// StateDict and LoadStateDict save and restore optimizer buffers for resume.
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Config selects and parameterizes an optimizer by name.
type Config struct {
	Name        string   // "sgd", "rmsprop" or "adamw"
	LR          float32  // Learning rate
	Momentum    float32  // SGD / RMSprop momentum
	WeightDecay float32  // L2 (sgd, rmsprop) or decoupled (adamw) weight decay
	NoDecay     []string // Parameter name substrings exempt from weight decay
}

// New builds the optimizer named by cfg.Name over params.
func New[B tensor.Backend](params []*nn.Parameter[B], cfg Config, backend B) (Optimizer, error) {
	switch strings.ToLower(cfg.Name) {
	case "sgd":
		return NewSGD(params, SGDConfig{
			LR: cfg.LR, Momentum: cfg.Momentum, WeightDecay: cfg.WeightDecay, NoDecay: cfg.NoDecay,
		}, backend), nil
	case "rmsprop":
		return NewRMSprop(params, RMSpropConfig{
			LR: cfg.LR, Momentum: cfg.Momentum, WeightDecay: cfg.WeightDecay, NoDecay: cfg.NoDecay,
		}, backend), nil
	case "adamw":
		return NewAdamW(params, AdamWConfig{
			LR: cfg.LR, WeightDecay: cfg.WeightDecay, NoDecay: cfg.NoDecay,
		}, backend), nil
	default:
		return nil, fmt.Errorf("%w: %q (want sgd, rmsprop or adamw)", ErrUnknownOptimizer, cfg.Name)
	}
}

// decays reports whether weight decay applies to param.
func decays[B tensor.Backend](param *nn.Parameter[B], noDecay []string) bool {
	for _, nd := range noDecay {
		if nd != "" && strings.Contains(param.Name(), nd) {
			return false
		}
	}
	return true
}

// buffers holds one per-parameter state tensor (momentum, moments, ...).
type buffers[B tensor.Backend] struct {
	name    string
	backend B
	m       map[*nn.Parameter[B]]*tensor.Tensor[float32, B]
}

func newBuffers[B tensor.Backend](name string, backend B) *buffers[B] {
	return &buffers[B]{name: name, backend: backend, m: make(map[*nn.Parameter[B]]*tensor.Tensor[float32, B])}
}

// get returns the buffer for param, zero-initialized on first use.
func (b *buffers[B]) get(param *nn.Parameter[B]) []float32 {
	buf, ok := b.m[param]
	if !ok {
		buf = tensor.Zeros[float32](param.Tensor().Shape(), b.backend)
		b.m[param] = buf
	}
	return buf.Data()
}

func (b *buffers[B]) save(params []*nn.Parameter[B], into map[string]*tensor.RawTensor) {
	for _, p := range params {
		if buf, ok := b.m[p]; ok {
			into[p.Name()+"."+b.name] = buf.Raw()
		}
	}
}

func (b *buffers[B]) load(params []*nn.Parameter[B], from map[string]*tensor.RawTensor) error {
	for _, p := range params {
		raw, ok := from[p.Name()+"."+b.name]
		if !ok {
			continue
		}
		if !raw.Shape().Equal(p.Tensor().Shape()) || raw.DType() != tensor.Float32 {
			return fmt.Errorf("optimizer state %s.%s: expected float32 %v, got %s %v",
				p.Name(), b.name, p.Tensor().Shape(), raw.DType(), raw.Shape())
		}
		copy(b.get(p), raw.AsFloat32())
	}
	return nil
}

func saveStep(into map[string]*tensor.RawTensor, t int) {
	raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int64, tensor.CPU)
	if err != nil {
		panic(err)
	}
	raw.AsInt64()[0] = int64(t)
	into["step"] = raw
}

func loadStep(from map[string]*tensor.RawTensor) (int, error) {
	raw, ok := from["step"]
	if !ok {
		return 0, nil
	}
	if raw.DType() != tensor.Int64 || raw.NumElements() != 1 {
		return 0, fmt.Errorf("optimizer state step: expected int64 scalar, got %s %v", raw.DType(), raw.Shape())
	}
	return int(raw.AsInt64()[0]), nil
}

func zeroGrads[B tensor.Backend](params []*nn.Parameter[B]) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
