// Package head implements the protein-function classification head: it pools per-residue
// backbone embeddings into one vector per sequence and projects it onto multi-hot label
// logits, with a binary cross-entropy loss when labels are given.
//
// Example:
//
//	h, err := head.New(head.Config{EmbedDim: 1280, NumLabels: 500, Strategy: head.Mean}, cpu.New())
//	out, err := h.Compute(embeddings, lengths, labels)
//	if err := h.Backward(out); err != nil { ... }
//	optimizer.Step()
package head

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tensor"
)

// Config configures a Head.
type Config struct {
	EmbedDim  int             // Backbone embedding dimension
	NumLabels int             // Number of output labels
	Dropout   float32         // Dropout before the projection, in [0, 1) (default: 0)
	Strategy  Strategy        // Pooling strategy (default: Cls)
	Seed      int64           // Seed for weight init and dropout masks
	Parallel  parallel.Config // Fan-out for per-sequence pooling
}

// Head pools token embeddings and classifies the pooled vectors.
//
// The only state kept across calls is the projection's weight and bias (plus their
// gradients). Compute in eval mode is safe for concurrent use as long as parameters are
// not updated at the same time.
type Head[B tensor.Backend] struct {
	cfg        Config
	dropout    *nn.Dropout[B]
	classifier *nn.Linear[B]
	loss       *nn.BCEWithLogitsLoss[B]
	backend    B
}

// Output is the result of Compute.
type Output[B tensor.Backend] struct {
	Logits *tensor.Tensor[float32, B] // [N, num_labels], pre-sigmoid
	Loss   *tensor.Tensor[float32, B] // [1]; nil when computed without labels

	features *tensor.Tensor[float32, B] // classifier input, kept for Backward
	labels   *tensor.Tensor[float32, B]
}

// New creates a head in training mode.
func New[B tensor.Backend](cfg Config, backend B) (*Head[B], error) {
	if cfg.EmbedDim <= 0 || cfg.NumLabels <= 0 {
		return nil, fmt.Errorf("head: embed dim and label count must be positive, got %d and %d", cfg.EmbedDim, cfg.NumLabels)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("head: dropout must be in [0, 1), got %v", cfg.Dropout)
	}
	if _, err := cfg.Strategy.MarshalText(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // G404: reproducible init, not security.
	return &Head[B]{
		cfg:        cfg,
		classifier: nn.NewLinear(cfg.EmbedDim, cfg.NumLabels, rng, backend),
		dropout:    nn.NewDropout[B](cfg.Dropout, rng),
		loss:       nn.NewBCEWithLogitsLoss(backend),
		backend:    backend,
	}, nil
}

// Compute pools embeddings, applies dropout and the projection, and computes the mean BCE
// loss when labels is non-nil.
//
// embeddings[i] is [tokens_i, dim] with the class token at row 0; lengths[i] counts the real
// tokens after it. labels, if given, is multi-hot [N, num_labels].
func (h *Head[B]) Compute(embeddings []*tensor.Tensor[float32, B], lengths []int, labels *tensor.Tensor[float32, B]) (*Output[B], error) {
	if !h.cfg.Strategy.Implemented() {
		return nil, fmt.Errorf("%w: %s is not implemented", ErrInvalidPoolMode, h.cfg.Strategy)
	}
	for i, emb := range embeddings {
		if shape := emb.Shape(); len(shape) == 2 && shape[1] != h.cfg.EmbedDim {
			return nil, fmt.Errorf("%w: sequence %d has dim %d, head expects %d", ErrShapeMismatch, i, shape[1], h.cfg.EmbedDim)
		}
	}
	if labels != nil {
		want := tensor.Shape{len(embeddings), h.cfg.NumLabels}
		if !labels.Shape().Equal(want) {
			return nil, fmt.Errorf("%w: labels %v, expected %v", ErrShapeMismatch, labels.Shape(), want)
		}
	}

	pooled, err := PoolBatch(embeddings, lengths, h.cfg.Strategy, h.cfg.Parallel)
	if err != nil {
		return nil, err
	}

	features := pooled
	if h.dropout.Training() {
		features = h.dropout.Forward(pooled)
	}

	out := &Output[B]{
		Logits:   h.classifier.Forward(features),
		features: features,
		labels:   labels,
	}
	if labels != nil {
		out.Loss = h.loss.Forward(out.Logits, labels)
	}
	return out, nil
}

// Backward accumulates the classifier's gradients for out. It does not update parameters.
func (h *Head[B]) Backward(out *Output[B]) error {
	if out.Loss == nil {
		return ErrNoLabels
	}
	grad := h.loss.Backward(out.Logits, out.labels)
	h.classifier.Backward(out.features, grad)
	return nil
}

// Probabilities returns sigmoid(logits).
func (o *Output[B]) Probabilities() *tensor.Tensor[float32, B] {
	return nn.SigmoidTensor(o.Logits)
}

// Train switches dropout between training (true) and eval (false) behavior.
func (h *Head[B]) Train(training bool) {
	h.dropout.Train(training)
}

// Training reports whether the head is in training mode.
func (h *Head[B]) Training() bool {
	return h.dropout.Training()
}

// Parameters returns the trainable parameters: classifier weight and bias.
func (h *Head[B]) Parameters() []*nn.Parameter[B] {
	return h.classifier.Parameters()
}

// ZeroGrad clears all parameter gradients.
func (h *Head[B]) ZeroGrad() {
	for _, p := range h.Parameters() {
		p.ZeroGrad()
	}
}

// Classifier returns the projection layer.
func (h *Head[B]) Classifier() *nn.Linear[B] {
	return h.classifier
}

// Strategy returns the pooling strategy.
func (h *Head[B]) Strategy() Strategy {
	return h.cfg.Strategy
}

// EmbedDim returns the expected embedding dimension.
func (h *Head[B]) EmbedDim() int {
	return h.cfg.EmbedDim
}

// NumLabels returns the number of output labels.
func (h *Head[B]) NumLabels() int {
	return h.cfg.NumLabels
}

const classifierPrefix = "classifier."

// StateDict returns the classifier tensors keyed "classifier.weight" and "classifier.bias".
func (h *Head[B]) StateDict() map[string]*tensor.RawTensor {
	state := make(map[string]*tensor.RawTensor)
	for name, raw := range h.classifier.StateDict() {
		state[classifierPrefix+name] = raw
	}
	return state
}

// LoadStateDict restores the classifier from a StateDict.
func (h *Head[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	sub := make(map[string]*tensor.RawTensor)
	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, classifierPrefix); ok {
			sub[rest] = raw
		}
	}
	if err := h.classifier.LoadStateDict(sub); err != nil {
		return fmt.Errorf("head: %w", err)
	}
	return nil
}
