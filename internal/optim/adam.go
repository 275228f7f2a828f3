package optim

import (
	"math"

	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/tensor"
)

// AdamW implements Adam with decoupled weight decay.
//
// Update rule:
//
//	param = param - lr * weight_decay * param         // Decoupled decay
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Decoupled Weight Decay Regularization" (Loshchilov & Hutter, 2019)
type AdamW[B tensor.Backend] struct {
	params      []*nn.Parameter[B]
	lr          float32
	beta1       float32
	beta2       float32
	eps         float32
	weightDecay float32
	noDecay     []string
	t           int // Timestep for bias correction
	m           *buffers[B]
	v           *buffers[B]
}

// AdamWConfig holds configuration for AdamW.
type AdamWConfig struct {
	LR          float32    // Learning rate (default: 0.001)
	Betas       [2]float32 // Running average coefficients (default: [0.9, 0.999])
	Eps         float32    // Term for numerical stability (default: 1e-8)
	WeightDecay float32    // Decoupled weight decay (0 = plain Adam)
	NoDecay     []string   // Parameter name substrings exempt from weight decay
}

// NewAdamW creates a new AdamW optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdamW[B tensor.Backend](params []*nn.Parameter[B], config AdamWConfig, backend B) *AdamW[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &AdamW[B]{
		params:      params,
		lr:          config.LR,
		beta1:       config.Betas[0],
		beta2:       config.Betas[1],
		eps:         config.Eps,
		weightDecay: config.WeightDecay,
		noDecay:     config.NoDecay,
		m:           newBuffers("exp_avg", backend),
		v:           newBuffers("exp_avg_sq", backend),
	}
}

// Step performs a single AdamW update. Parameters with no gradient are skipped.
func (a *AdamW[B]) Step() {
	a.t++
	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}

		w := param.Tensor().Data()
		g := grad.Data()
		m := a.m.get(param)
		v := a.v.get(param)

		if a.weightDecay != 0 && decays(param, a.noDecay) {
			shrink := 1 - a.lr*a.weightDecay
			for i := range w {
				w[i] *= shrink
			}
		}

		for i := range w {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			mHat := m[i] / biasCorrection1
			vHat := v[i] / biasCorrection2
			w[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad clears all parameter gradients.
func (a *AdamW[B]) ZeroGrad() {
	zeroGrads(a.params)
}

// GetLR returns the current learning rate.
func (a *AdamW[B]) GetLR() float32 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *AdamW[B]) SetLR(lr float32) {
	a.lr = lr
}

// GetTimestep returns the current timestep.
func (a *AdamW[B]) GetTimestep() int {
	return a.t
}

// StateDict returns both moment estimates and the timestep.
func (a *AdamW[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	a.m.save(a.params, state)
	a.v.save(a.params, state)
	saveStep(state, a.t)
	return state
}

// LoadStateDict restores both moment estimates and the timestep.
func (a *AdamW[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	t, err := loadStep(stateDict)
	if err != nil {
		return err
	}
	a.t = t
	if err := a.m.load(a.params, stateDict); err != nil {
		return err
	}
	return a.v.load(a.params, stateDict)
}
