package optim

import (
	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum and L2 weight decay.
//
// Update rule:
//
//	g = gradient + weight_decay * param
//	velocity = momentum * velocity + g
//	param = param - lr * velocity
type SGD[B tensor.Backend] struct {
	params      []*nn.Parameter[B]
	lr          float32
	momentum    float32
	weightDecay float32
	noDecay     []string
	velocities  *buffers[B]
	t           int
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR          float32  // Learning rate (default: 0.01)
	Momentum    float32  // Momentum factor (default: 0.0, range: [0, 1))
	WeightDecay float32  // L2 penalty
	NoDecay     []string // Parameter name substrings exempt from weight decay
}

// NewSGD creates a new SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:      params,
		lr:          config.LR,
		momentum:    config.Momentum,
		weightDecay: config.WeightDecay,
		noDecay:     config.NoDecay,
		velocities:  newBuffers("momentum_buffer", backend),
	}
}

// Step performs a single optimization step.
func (s *SGD[B]) Step() {
	s.t++
	for _, param := range s.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}
		w := param.Tensor().Data()
		g := grad.Data()
		wd := float32(0)
		if decays(param, s.noDecay) {
			wd = s.weightDecay
		}

		if s.momentum == 0 {
			for i := range w {
				w[i] -= s.lr * (g[i] + wd*w[i])
			}
			continue
		}

		v := s.velocities.get(param)
		for i := range w {
			v[i] = s.momentum*v[i] + g[i] + wd*w[i]
			w[i] -= s.lr * v[i]
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (s *SGD[B]) ZeroGrad() {
	zeroGrads(s.params)
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}

// StateDict returns the momentum buffers and step count.
func (s *SGD[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	s.velocities.save(s.params, state)
	saveStep(state, s.t)
	return state
}

// LoadStateDict restores the momentum buffers and step count.
func (s *SGD[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	t, err := loadStep(stateDict)
	if err != nil {
		return err
	}
	s.t = t
	return s.velocities.load(s.params, stateDict)
}
