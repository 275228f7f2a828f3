package optim

import (
	"math"

	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/tensor"
)

// RMSprop scales each step by a running average of squared gradients.
//
//	g = gradient + weight_decay * param
//	sq = alpha * sq + (1-alpha) * g²
//	buf = momentum * buf + g / (sqrt(sq) + eps)
//	param = param - lr * buf
type RMSprop[B tensor.Backend] struct {
	params      []*nn.Parameter[B]
	lr          float32
	alpha       float32
	eps         float32
	momentum    float32
	weightDecay float32
	noDecay     []string
	squares     *buffers[B]
	momentums   *buffers[B]
	t           int
}

// RMSpropConfig holds configuration for RMSprop.
type RMSpropConfig struct {
	LR          float32  // Learning rate (default: 0.01)
	Alpha       float32  // Smoothing constant (default: 0.99)
	Eps         float32  // Term for numerical stability (default: 1e-8)
	Momentum    float32  // Momentum factor
	WeightDecay float32  // L2 penalty
	NoDecay     []string // Parameter name substrings exempt from weight decay
}

// NewRMSprop creates a new RMSprop optimizer.
func NewRMSprop[B tensor.Backend](params []*nn.Parameter[B], config RMSpropConfig, backend B) *RMSprop[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	if config.Alpha == 0 {
		config.Alpha = 0.99
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &RMSprop[B]{
		params:      params,
		lr:          config.LR,
		alpha:       config.Alpha,
		eps:         config.Eps,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		noDecay:     config.NoDecay,
		squares:     newBuffers("square_avg", backend),
		momentums:   newBuffers("momentum_buffer", backend),
	}
}

// Step performs a single optimization step.
func (r *RMSprop[B]) Step() {
	r.t++
	for _, param := range r.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}
		w := param.Tensor().Data()
		g := grad.Data()
		sq := r.squares.get(param)
		wd := float32(0)
		if decays(param, r.noDecay) {
			wd = r.weightDecay
		}

		var buf []float32
		if r.momentum > 0 {
			buf = r.momentums.get(param)
		}
		for i := range w {
			gi := g[i] + wd*w[i]
			sq[i] = r.alpha*sq[i] + (1-r.alpha)*gi*gi
			step := gi / (float32(math.Sqrt(float64(sq[i]))) + r.eps)
			if buf != nil {
				buf[i] = r.momentum*buf[i] + step
				step = buf[i]
			}
			w[i] -= r.lr * step
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (r *RMSprop[B]) ZeroGrad() {
	zeroGrads(r.params)
}

// GetLR returns the current learning rate.
func (r *RMSprop[B]) GetLR() float32 {
	return r.lr
}

// SetLR updates the learning rate.
func (r *RMSprop[B]) SetLR(lr float32) {
	r.lr = lr
}

// StateDict returns the running averages and step count.
func (r *RMSprop[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	r.squares.save(r.params, state)
	r.momentums.save(r.params, state)
	saveStep(state, r.t)
	return state
}

// LoadStateDict restores the running averages and step count.
func (r *RMSprop[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	t, err := loadStep(stateDict)
	if err != nil {
		return err
	}
	r.t = t
	if err := r.squares.load(r.params, stateDict); err != nil {
		return err
	}
	return r.momentums.load(r.params, stateDict)
}
