package main

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/deepfold/internal/backbone"
	"github.com/born-ml/deepfold/internal/backend/cpu"
	"github.com/born-ml/deepfold/internal/config"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tokenizer"
)

// pipeline holds the pieces shared by train, evaluate and predict: the CPU backend, the
// embedding store and the backbone serving it.
type pipeline struct {
	par      parallel.Config
	backend  *cpu.CPUBackend
	store    *dataset.Store
	backbone backbone.Backbone[*cpu.CPUBackend]
	tok      *tokenizer.ESM
}

// openPipeline opens the embedding store named by cfg and checks it against the
// configured backbone.
func openPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	par := parallel.WithWorkers(cfg.Workers)
	backend := cpu.NewWithConfig(par)

	res := backbone.Resolve(cfg.Backbone)
	if w := res.Warning(); w != nil {
		logger.Warn("falling back to default backbone", "err", w)
	}

	store, err := dataset.OpenStore(cfg.DataFile(cfg.EmbeddingsFile), cfg.CacheSizeMB<<20)
	if err != nil {
		return nil, fmt.Errorf("embedding store: %w", err)
	}
	bb, err := backbone.NewPrecomputed(res, cfg.ReprLayer, store, backbone.Policy{Freeze: cfg.FreezeBackbone}, backend, par)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("embedding store opened",
		"path", cfg.DataFile(cfg.EmbeddingsFile),
		"proteins", len(store.IDs()),
		"backbone", bb.Model().Name,
		"repr_layer", bb.ReprLayer(),
		"embed_dim", bb.Model().EmbedDim,
	)
	return &pipeline{
		par:      par,
		backend:  backend,
		store:    store,
		backbone: bb,
		tok:      tokenizer.NewESM(cfg.MaxLen),
	}, nil
}

// loader reads a FASTA file, joins it with annotations and batches it. Unlabeled
// proteins are kept only when keepUnlabeled is set.
func (p *pipeline) loader(
	path string,
	anns []dataset.Annotation,
	labels *dataset.LabelMap,
	cfg *config.Config,
	shuffle, keepUnlabeled bool,
	logger *slog.Logger,
) (*dataset.Loader, error) {
	records, err := dataset.ReadFasta(path)
	if err != nil {
		return nil, err
	}
	examples := dataset.Join(records, anns, labels, keepUnlabeled)
	if len(examples) == 0 {
		return nil, fmt.Errorf("%s: no usable proteins", path)
	}
	missing := 0
	for _, ex := range examples {
		if !p.store.Has(ex.ID) {
			missing++
		}
	}
	if missing > 0 {
		return nil, fmt.Errorf("%s: %d of %d proteins have no stored embedding: %w", path, missing, len(examples), dataset.ErrEmbeddingNotFound)
	}

	logger.Info("dataset loaded", "path", path, "sequences", len(records), "examples", len(examples))
	return dataset.NewLoader(examples, cfg.BatchSize, shuffle, cfg.Seed, labels.Len(), p.tok.Length)
}

func (p *pipeline) Close(logger *slog.Logger) {
	st := p.store.Stats()
	logger.Debug("embedding cache", "hits", st.Hits, "misses", st.Misses, "bytes", st.CachedBytes)
	if err := p.store.Close(); err != nil {
		logger.Warn("failed to close embedding store", "err", err)
	}
}
