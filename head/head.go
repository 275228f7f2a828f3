// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package head provides the protein-function classification head: pooling of
// per-residue embeddings followed by a linear projection onto GO-term logits.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/deepfold/backend/cpu"
//	    "github.com/born-ml/deepfold/head"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    h, err := head.New(head.Config{
//	        EmbedDim:  1280,
//	        NumLabels: 500,
//	        Strategy:  head.Mean,
//	        Parallel:  head.Workers(8),
//	    }, backend)
//
//	    // embeddings[i] is [tokens_i, 1280] with the class token in row 0;
//	    // lengths[i] counts the residue rows that follow it.
//	    out, err := h.Compute(embeddings, lengths, labels)
//	    err = h.Backward(out)
//	}
//
// # Pooling Strategies
//
//   - Cls: the class-token row
//   - Mean: the average of the residue rows (padding excluded)
//
// FirstLastAvg, LastAvg and Pooler parse but fail with ErrInvalidPoolMode when used.
package head

import (
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/tensor"
)

// Head pools token embeddings and classifies the pooled vectors.
type Head[B tensor.Backend] = head.Head[B]

// Config configures a Head.
type Config = head.Config

// Output is the result of Compute: logits and, with labels, the loss.
type Output[B tensor.Backend] = head.Output[B]

// ParallelConfig controls how per-sequence pooling fans out.
type ParallelConfig = parallel.Config

// Workers returns a ParallelConfig using n goroutines. n <= 1 pools sequentially.
func Workers(n int) ParallelConfig {
	return parallel.WithWorkers(n)
}

// Strategy selects how a sequence's token embeddings collapse into one vector.
type Strategy = head.Strategy

// Pooling strategies.
const (
	Cls          = head.Cls
	Mean         = head.Mean
	FirstLastAvg = head.FirstLastAvg
	LastAvg      = head.LastAvg
	Pooler       = head.Pooler
)

// Errors.
var (
	ErrShapeMismatch   = head.ErrShapeMismatch
	ErrInvalidPoolMode = head.ErrInvalidPoolMode
	ErrNoLabels        = head.ErrNoLabels
)

// New creates a head in training mode.
func New[B tensor.Backend](cfg Config, backend B) (*Head[B], error) {
	return head.New(cfg, backend)
}

// ParseStrategy maps a config name ("cls", "mean", ...) to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	return head.ParseStrategy(name)
}

// Pool reduces one [tokens, dim] embedding matrix to a [dim] vector.
func Pool[B tensor.Backend](emb *tensor.Tensor[float32, B], length int, strategy Strategy) (*tensor.Tensor[float32, B], error) {
	return head.Pool(emb, length, strategy)
}

// SplitBatch splits a padded [batch, tokens, dim] backbone output into per-sequence
// matrices.
func SplitBatch[B tensor.Backend](batch *tensor.Tensor[float32, B]) ([]*tensor.Tensor[float32, B], error) {
	return head.SplitBatch(batch)
}
