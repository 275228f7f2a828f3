package head

import (
	"fmt"

	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tensor"
)

// Filter returns the real-token rows [1, length+1) of a [tokens, dim] matrix, dropping the
// class token and any padding.
func Filter[B tensor.Backend](emb *tensor.Tensor[float32, B], length int) (*tensor.Tensor[float32, B], error) {
	if err := checkLength(emb, length); err != nil {
		return nil, err
	}
	return emb.Narrow(1, length+1), nil
}

// Pool reduces one sequence's [tokens, dim] matrix to a [dim] vector.
func Pool[B tensor.Backend](emb *tensor.Tensor[float32, B], length int, strategy Strategy) (*tensor.Tensor[float32, B], error) {
	if err := checkLength(emb, length); err != nil {
		return nil, err
	}

	switch strategy {
	case Cls:
		return emb.Row(0), nil
	case Mean:
		// No real tokens averages to the zero vector.
		return emb.Narrow(1, length+1).MeanDim(0, false), nil
	default:
		return nil, fmt.Errorf("%w: %s is not implemented", ErrInvalidPoolMode, strategy)
	}
}

// PoolBatch pools every sequence and stacks the results into [N, dim]. Sequences are pooled
// in parallel; the first failing sequence (by index) determines the error.
func PoolBatch[B tensor.Backend](embeddings []*tensor.Tensor[float32, B], lengths []int, strategy Strategy, cfg parallel.Config) (*tensor.Tensor[float32, B], error) {
	if !strategy.Implemented() {
		return nil, fmt.Errorf("%w: %s is not implemented", ErrInvalidPoolMode, strategy)
	}
	if len(embeddings) != len(lengths) {
		return nil, fmt.Errorf("%w: %d embeddings but %d lengths", ErrShapeMismatch, len(embeddings), len(lengths))
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrShapeMismatch)
	}

	dim := -1
	for i, emb := range embeddings {
		shape := emb.Shape()
		if len(shape) != 2 {
			return nil, fmt.Errorf("%w: sequence %d: expected [tokens, dim], got %v", ErrShapeMismatch, i, shape)
		}
		if dim < 0 {
			dim = shape[1]
		} else if shape[1] != dim {
			return nil, fmt.Errorf("%w: sequence %d has dim %d, expected %d", ErrShapeMismatch, i, shape[1], dim)
		}
	}

	pooled := make([]*tensor.Tensor[float32, B], len(embeddings))
	err := parallel.ForErr(len(embeddings), func(i int) error {
		v, err := Pool(embeddings[i], lengths[i], strategy)
		if err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
		pooled[i] = v
		return nil
	}, cfg)
	if err != nil {
		return nil, err
	}
	return tensor.Stack(pooled), nil
}

// SplitBatch splits a padded [batch, tokens, dim] backbone output into per-sequence matrices.
func SplitBatch[B tensor.Backend](batch *tensor.Tensor[float32, B]) ([]*tensor.Tensor[float32, B], error) {
	if len(batch.Shape()) != 3 {
		return nil, fmt.Errorf("%w: expected [batch, tokens, dim], got %v", ErrShapeMismatch, batch.Shape())
	}
	return batch.Unbind(), nil
}

func checkLength[B tensor.Backend](emb *tensor.Tensor[float32, B], length int) error {
	shape := emb.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("%w: expected [tokens, dim], got %v", ErrShapeMismatch, shape)
	}
	if length < 0 {
		return fmt.Errorf("%w: negative length %d", ErrShapeMismatch, length)
	}
	if length+1 > shape[0] {
		return fmt.Errorf("%w: length %d exceeds the %d tokens after the class token", ErrShapeMismatch, length, shape[0]-1)
	}
	return nil
}
