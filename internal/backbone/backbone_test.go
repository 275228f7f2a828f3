package backbone_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/born-ml/deepfold/internal/backbone"
	"github.com/born-ml/deepfold/internal/backend/cpu"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ backbone.Backbone[*cpu.CPUBackend] = (*backbone.Precomputed[*cpu.CPUBackend])(nil)

func TestResolve(t *testing.T) {
	res := backbone.Resolve("esm2_t6_8M_UR50D")
	assert.False(t, res.Fallback)
	assert.NoError(t, res.Warning())
	assert.Equal(t, 6, res.Model.Layers)
	assert.Equal(t, 320, res.Model.EmbedDim)

	res = backbone.Resolve("protbert")
	assert.True(t, res.Fallback)
	assert.Equal(t, "protbert", res.Requested)
	assert.Equal(t, backbone.DefaultModel, res.Model.Name)
	assert.Equal(t, 33, res.Model.Layers)
	assert.Equal(t, 1280, res.Model.EmbedDim)
	assert.ErrorIs(t, res.Warning(), backbone.ErrUnrecognizedBackbone)
}

func TestModels(t *testing.T) {
	models := backbone.Models()
	require.NotEmpty(t, models)
	for i := 1; i < len(models); i++ {
		assert.Less(t, models[i-1].Name, models[i].Name)
	}

	msa, ok := backbone.Lookup("esm_msa1b_t12_100M_UR50S")
	require.True(t, ok)
	assert.True(t, msa.MSA)

	def, ok := backbone.Lookup(backbone.DefaultModel)
	require.True(t, ok)
	assert.False(t, def.MSA)
}

func TestReprLayer(t *testing.T) {
	m, _ := backbone.Lookup(backbone.DefaultModel)

	tests := []struct {
		layer int
		want  int
	}{
		{-1, 33},
		{0, 0},
		{12, 12},
		{33, 33},
		{-34, 0},
		{-2, 32},
	}
	for _, tt := range tests {
		got, err := m.ReprLayer(tt.layer)
		require.NoError(t, err, tt.layer)
		assert.Equal(t, tt.want, got, tt.layer)
	}

	_, err := m.ReprLayer(34)
	assert.ErrorIs(t, err, backbone.ErrLayerOutOfRange)
	_, err = m.ReprLayer(-35)
	assert.ErrorIs(t, err, backbone.ErrLayerOutOfRange)
}

func writeStore(t *testing.T, model string, layer, dim int) *dataset.Store {
	t.Helper()
	embs := make(map[string]*tensor.RawTensor)
	for i, id := range []string{"P1", "P2", "P3"} {
		raw, err := tensor.NewRaw(tensor.Shape{i + 3, dim}, tensor.Float32, tensor.CPU)
		require.NoError(t, err)
		raw.AsFloat32()[0] = float32(i + 1)
		embs[id] = raw
	}
	path := filepath.Join(t.TempDir(), "emb.safetensors")
	require.NoError(t, dataset.WriteStore(path, model, layer, embs))
	store, err := dataset.OpenStore(path, 1<<20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPrecomputed_Embed(t *testing.T) {
	res := backbone.Resolve("esm2_t6_8M_UR50D")
	store := writeStore(t, res.Model.Name, 6, 320)

	bb, err := backbone.NewPrecomputed(res, -1, store, backbone.Policy{Freeze: true}, cpu.New(), parallel.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, bb.Frozen())
	assert.Equal(t, 6, bb.ReprLayer())

	embs, err := bb.Embed(context.Background(), []string{"P3", "P1"})
	require.NoError(t, err)
	require.Len(t, embs, 2)
	assert.Equal(t, tensor.Shape{5, 320}, embs[0].Shape())
	assert.Equal(t, float32(3), embs[0].At(0, 0))
	assert.Equal(t, float32(1), embs[1].At(0, 0))

	_, err = bb.Embed(context.Background(), []string{"P1", "missing"})
	assert.ErrorIs(t, err, dataset.ErrEmbeddingNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = bb.Embed(ctx, []string{"P1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrecomputed_Validation(t *testing.T) {
	res := backbone.Resolve("esm2_t6_8M_UR50D")
	policy := backbone.Policy{Freeze: true}
	par := parallel.DefaultConfig()

	_, err := backbone.NewPrecomputed(res, -1, writeStore(t, res.Model.Name, 6, 320), backbone.Policy{}, cpu.New(), par)
	assert.ErrorIs(t, err, backbone.ErrNotTrainable)

	_, err = backbone.NewPrecomputed(res, -1, writeStore(t, "esm2_t12_35M_UR50D", 6, 320), policy, cpu.New(), par)
	assert.ErrorIs(t, err, backbone.ErrStoreMismatch)

	_, err = backbone.NewPrecomputed(res, 3, writeStore(t, res.Model.Name, 6, 320), policy, cpu.New(), par)
	assert.ErrorIs(t, err, backbone.ErrStoreMismatch)

	_, err = backbone.NewPrecomputed(res, -1, writeStore(t, res.Model.Name, 6, 16), policy, cpu.New(), par)
	assert.ErrorIs(t, err, backbone.ErrStoreMismatch)

	_, err = backbone.NewPrecomputed(res, 99, writeStore(t, res.Model.Name, 6, 320), policy, cpu.New(), par)
	assert.ErrorIs(t, err, backbone.ErrLayerOutOfRange)
}
