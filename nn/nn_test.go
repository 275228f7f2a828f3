// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepfold/backend/cpu"
	"github.com/born-ml/deepfold/nn"
	"github.com/born-ml/deepfold/tensor"
)

// TestModuleInterface verifies that the layers implement Module.
func TestModuleInterface(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))

	modules := map[string]nn.Module[*cpu.Backend]{
		"Linear":  nn.NewLinear(4, 2, rng, backend),
		"Dropout": nn.NewDropout[*cpu.Backend](0.5, rng),
	}
	input := tensor.Full[float32](tensor.Shape{3, 4}, 1, backend)
	for name, m := range modules {
		t.Run(name, func(t *testing.T) {
			out := m.Forward(input)
			assert.Equal(t, 3, out.Shape()[0])
		})
	}
}

func TestLinearTrainingStep(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(2, 1, rand.New(rand.NewSource(7)), backend)
	loss := nn.NewBCEWithLogitsLoss(backend)

	x, err := tensor.FromSlice([]float32{1, 0, 0, 1}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	y, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)

	before := loss.Forward(layer.Forward(x), y).Item()
	for i := 0; i < 50; i++ {
		logits := layer.Forward(x)
		layer.Backward(x, loss.Backward(logits, y))
		for _, p := range layer.Parameters() {
			w, g := p.Tensor().Data(), p.Grad().Data()
			for j := range w {
				w[j] -= 0.5 * g[j]
			}
			p.ZeroGrad()
		}
	}
	after := loss.Forward(layer.Forward(x), y).Item()
	assert.Less(t, after, before)
}

func TestCheckpointFacade(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, rand.New(rand.NewSource(3)), backend)
	path := filepath.Join(t.TempDir(), "linear.safetensors")

	ckpt := &nn.Checkpoint{Model: layer, Epoch: 4, Metadata: map[string]string{"note": "facade"}}
	require.NoError(t, ckpt.Save(path))

	meta, err := nn.ReadCheckpointMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, "facade", meta["note"])

	restored := nn.NewLinear(3, 2, rand.New(rand.NewSource(99)), backend)
	loaded, err := nn.LoadCheckpoint(path, restored, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Epoch)
	assert.Equal(t, layer.Weight().Tensor().Data(), restored.Weight().Tensor().Data())
}
