package backbone

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tensor"
)

var (
	// ErrNotTrainable is returned when a trainable policy is requested for a backbone
	// that cannot be fine-tuned.
	ErrNotTrainable = errors.New("backbone cannot be fine-tuned")

	// ErrStoreMismatch reports an embedding store produced by a different model or layer.
	ErrStoreMismatch = errors.New("embedding store does not match backbone")
)

// Policy is fixed when the backbone is built.
type Policy struct {
	Freeze bool // Backbone weights receive no updates
}

// Backbone produces per-token embeddings for a batch of proteins.
type Backbone[B tensor.Backend] interface {
	// Model returns the backbone description.
	Model() Model

	// ReprLayer returns the normalized representation layer embeddings come from.
	ReprLayer() int

	// Frozen reports whether the backbone contributes no trainable parameters.
	Frozen() bool

	// Embed returns one [tokens, dim] matrix per id, class token first.
	Embed(ctx context.Context, ids []string) ([]*tensor.Tensor[float32, B], error)
}

// Precomputed serves embeddings extracted ahead of time into a dataset.Store. It is
// always frozen.
type Precomputed[B tensor.Backend] struct {
	model   Model
	layer   int
	store   *dataset.Store
	backend B
	par     parallel.Config
}

// NewPrecomputed checks that store was produced by res.Model at layer and wraps it.
func NewPrecomputed[B tensor.Backend](res Resolution, layer int, store *dataset.Store, policy Policy, backend B, par parallel.Config) (*Precomputed[B], error) {
	if !policy.Freeze {
		return nil, fmt.Errorf("%w: precomputed embeddings are fixed", ErrNotTrainable)
	}

	repr, err := res.Model.ReprLayer(layer)
	if err != nil {
		return nil, err
	}
	if m := store.Model(); m != "" && m != res.Model.Name {
		return nil, fmt.Errorf("%w: store model %q, backbone %q", ErrStoreMismatch, m, res.Model.Name)
	}
	if l := store.Layer(); l >= 0 && l != repr {
		return nil, fmt.Errorf("%w: store layer %d, backbone layer %d", ErrStoreMismatch, l, repr)
	}
	if d := store.Dim(); d >= 0 && d != res.Model.EmbedDim {
		return nil, fmt.Errorf("%w: store dim %d, %s has dim %d", ErrStoreMismatch, d, res.Model.Name, res.Model.EmbedDim)
	}

	return &Precomputed[B]{model: res.Model, layer: repr, store: store, backend: backend, par: par}, nil
}

// Model returns the backbone description.
func (p *Precomputed[B]) Model() Model { return p.model }

// ReprLayer returns the normalized representation layer.
func (p *Precomputed[B]) ReprLayer() int { return p.layer }

// Frozen always returns true.
func (p *Precomputed[B]) Frozen() bool { return true }

// Embed loads the stored embeddings of ids.
func (p *Precomputed[B]) Embed(ctx context.Context, ids []string) ([]*tensor.Tensor[float32, B], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*tensor.Tensor[float32, B], len(ids))
	err := parallel.ForErr(len(ids), func(i int) error {
		raw, err := p.store.Embedding(ids[i])
		if err != nil {
			return err
		}
		out[i] = tensor.New[float32, B](raw, p.backend)
		return nil
	}, p.par)
	if err != nil {
		return nil, err
	}
	return out, nil
}

