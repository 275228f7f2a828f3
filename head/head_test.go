// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package head_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepfold/backend/cpu"
	"github.com/born-ml/deepfold/head"
	"github.com/born-ml/deepfold/tensor"
)

func TestHeadFacade(t *testing.T) {
	backend := cpu.New()
	h, err := head.New(head.Config{
		EmbedDim:  2,
		NumLabels: 3,
		Strategy:  head.Mean,
		Parallel:  head.Workers(2),
	}, backend)
	require.NoError(t, err)

	batch, err := tensor.FromSlice([]float32{
		9, 9, 1, 2, 3, 4, 0, 0,
		7, 7, 5, 5, 0, 0, 0, 0,
	}, tensor.Shape{2, 4, 2}, backend)
	require.NoError(t, err)
	embs, err := head.SplitBatch(batch)
	require.NoError(t, err)

	labels, err := tensor.FromSlice([]float32{1, 0, 1, 0, 1, 0}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	out, err := h.Compute(embs, []int{2, 1}, labels)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, out.Logits.Shape())
	require.NotNil(t, out.Loss)
	require.NoError(t, h.Backward(out))

	pooled, err := head.Pool(embs[0], 2, head.Mean)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3}, pooled.Data())
}

func TestHeadFacade_UnimplementedStrategy(t *testing.T) {
	s, err := head.ParseStrategy("last-avg")
	require.NoError(t, err)
	assert.Equal(t, head.LastAvg, s)

	emb := tensor.Zeros[float32](tensor.Shape{3, 2}, cpu.New())
	_, err = head.Pool(emb, 1, s)
	assert.ErrorIs(t, err, head.ErrInvalidPoolMode)
}
