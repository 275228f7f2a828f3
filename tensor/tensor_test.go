// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepfold/backend/cpu"
	"github.com/born-ml/deepfold/tensor"
)

// TestBackendInterface verifies that the CPU backend implements tensor.Backend.
func TestBackendInterface(_ *testing.T) {
	var _ tensor.Backend = cpu.New()
}

func TestRawTensorAPI(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	assert.True(t, raw.Shape().Equal(tensor.Shape{2, 3}))
	assert.Equal(t, tensor.Float32, raw.DType())
	assert.Equal(t, tensor.CPU, raw.Device())
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())

	raw.AsFloat32()[0] = 1
	clone := raw.Clone()
	clone.AsFloat32()[0] = 2
	assert.Equal(t, float32(1), raw.AsFloat32()[0], "clone must not alias")
}

func TestPoolingWorkflow(t *testing.T) {
	backend := cpu.New()

	// class token, three residues, one padding row
	emb, err := tensor.FromSlice([]float32{
		9, 9,
		1, 2,
		3, 4,
		5, 6,
		0, 0,
	}, tensor.Shape{5, 2}, backend)
	require.NoError(t, err)

	mean := emb.Narrow(1, 4).MeanDim(0, false)
	assert.Equal(t, []float32{3, 4}, mean.Data())

	cls := emb.Row(0)
	stacked := tensor.Stack([]*tensor.Tensor[float32, *cpu.Backend]{cls, mean})
	assert.Equal(t, tensor.Shape{2, 2}, stacked.Shape())
	assert.Equal(t, []float32{9, 9, 3, 4}, stacked.Data())
}

func TestFromSliceShapeMismatch(t *testing.T) {
	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, cpu.New())
	assert.Error(t, err)
}

func TestFullAndZeros(t *testing.T) {
	backend := cpu.New()
	ones := tensor.Full[float32](tensor.Shape{2, 2}, 1, backend)
	zeros := tensor.Zeros[float32](tensor.Shape{2, 2}, backend)
	assert.Equal(t, []float32{1, 1, 1, 1}, ones.Add(zeros).Data())
}
