package dataset_test

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastaText = `>P1 kinase domain
MKTAYIAK
QR
>P2
mkt
>P3 unannotated
GGGG
`

const annText = `# id	namespace	terms
P1	mfo	GO:0003674,GO:0005515
P1	bpo	GO:0008150
P2	mfo	GO:0005515

`

func TestParseFasta(t *testing.T) {
	records, err := dataset.ParseFasta(strings.NewReader(fastaText))
	require.NoError(t, err)
	assert.Equal(t, []dataset.Record{
		{ID: "P1", Sequence: "MKTAYIAKQR"},
		{ID: "P2", Sequence: "MKT"},
		{ID: "P3", Sequence: "GGGG"},
	}, records)

	_, err = dataset.ParseFasta(strings.NewReader(">A\nMK\n>A\nMK\n"))
	assert.Error(t, err)
}

func TestParseAnnotations(t *testing.T) {
	all, err := dataset.ParseAnnotations(strings.NewReader(annText), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mfo, err := dataset.ParseAnnotations(strings.NewReader(annText), "mfo")
	require.NoError(t, err)
	require.Len(t, mfo, 2)
	assert.Equal(t, dataset.Annotation{ID: "P1", Namespace: "mfo", Terms: []string{"GO:0003674", "GO:0005515"}}, mfo[0])

	_, err = dataset.ParseAnnotations(strings.NewReader(annText), "xyz")
	assert.ErrorIs(t, err, dataset.ErrInvalidNamespace)

	_, err = dataset.ParseAnnotations(strings.NewReader("P1\tabc\tGO:1\n"), "")
	assert.ErrorIs(t, err, dataset.ErrInvalidNamespace)

	_, err = dataset.ParseAnnotations(strings.NewReader("P1\tmfo\n"), "")
	assert.Error(t, err)
}

func TestLabelMap(t *testing.T) {
	anns, err := dataset.ParseAnnotations(strings.NewReader(annText), "")
	require.NoError(t, err)

	m := dataset.NewLabelMap(anns)
	assert.Equal(t, []string{"GO:0003674", "GO:0005515", "GO:0008150"}, m.Terms())
	assert.Equal(t, 3, m.Len())

	i, ok := m.Index("GO:0008150")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, "GO:0005515", m.Term(1))

	assert.Equal(t, []float32{0, 1, 1}, m.Encode([]string{"GO:0008150", "GO:0005515", "GO:9999999"}))

	parsed := dataset.ParseLabelMap(m.String())
	assert.Equal(t, m.Terms(), parsed.Terms())
	assert.Equal(t, 0, dataset.ParseLabelMap("").Len())
}

func TestJoinAndLoader(t *testing.T) {
	records, err := dataset.ParseFasta(strings.NewReader(fastaText))
	require.NoError(t, err)
	anns, err := dataset.ParseAnnotations(strings.NewReader(annText), "mfo")
	require.NoError(t, err)
	labels := dataset.NewLabelMap(anns)

	examples := dataset.Join(records, anns, labels, false)
	require.Len(t, examples, 2)
	assert.Equal(t, []float32{1, 1}, examples[0].Labels)
	assert.Equal(t, []float32{0, 1}, examples[1].Labels)

	withUnlabeled := dataset.Join(records, anns, labels, true)
	require.Len(t, withUnlabeled, 3)
	assert.Nil(t, withUnlabeled[2].Labels)

	length := func(seq string) int { return min(len(seq), 4) }
	loader, err := dataset.NewLoader(examples, 1, false, 1, labels.Len(), length)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.NumBatches())

	batches := loader.Epoch(0)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"P1"}, batches[0].IDs)
	assert.Equal(t, []int{4}, batches[0].Lengths)
	assert.Equal(t, []float32{1, 1}, batches[0].Labels)
	assert.Equal(t, []int{3}, batches[1].Lengths)

	mixed, err := dataset.NewLoader(withUnlabeled, 3, false, 1, labels.Len(), length)
	require.NoError(t, err)
	assert.Nil(t, mixed.Epoch(0)[0].Labels)

	_, err = dataset.NewLoader(examples, 0, false, 1, labels.Len(), length)
	assert.Error(t, err)
	_, err = dataset.NewLoader(examples, 1, false, 1, 5, length)
	assert.Error(t, err)
}

func TestLoader_ShuffleIsSeeded(t *testing.T) {
	examples := make([]dataset.Example, 50)
	for i := range examples {
		examples[i] = dataset.Example{ID: string(rune('A' + i)), Sequence: "MK", Labels: []float32{1}}
	}
	ids := func(l *dataset.Loader, epoch int) []string {
		var out []string
		for _, b := range l.Epoch(epoch) {
			out = append(out, b.IDs...)
		}
		return out
	}

	a, err := dataset.NewLoader(examples, 8, true, 42, 1, func(s string) int { return len(s) })
	require.NoError(t, err)
	b, err := dataset.NewLoader(examples, 8, true, 42, 1, func(s string) int { return len(s) })
	require.NoError(t, err)

	assert.Equal(t, ids(a, 3), ids(b, 3))
	assert.NotEqual(t, ids(a, 0), ids(a, 1))

	sorted := ids(a, 0)
	sort.Strings(sorted)
	assert.Len(t, sorted, 50)
	assert.Equal(t, "A", sorted[0])
	assert.Len(t, a.Epoch(0), 7)
	assert.Equal(t, 2, a.Epoch(0)[6].Size())
}

func embedding(t *testing.T, rows, dim int, fill float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(tensor.Shape{rows, dim}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	data := raw.AsFloat32()
	for i := range data {
		data[i] = fill + float32(i)
	}
	return raw
}

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.safetensors")
	require.NoError(t, dataset.WriteStore(path, "esm1b_t33_650M_UR50S", 33, map[string]*tensor.RawTensor{
		"P1": embedding(t, 5, 3, 0),
		"P2": embedding(t, 4, 3, 100),
	}))

	store, err := dataset.OpenStore(path, 32<<20)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "esm1b_t33_650M_UR50S", store.Model())
	assert.Equal(t, 33, store.Layer())
	assert.Equal(t, 3, store.Dim())
	assert.Equal(t, []string{"P1", "P2"}, store.IDs())
	assert.True(t, store.Has("P2"))
	assert.False(t, store.Has("P9"))

	tokens, err := store.Tokens("P1")
	require.NoError(t, err)
	assert.Equal(t, 5, tokens)

	for i := 0; i < 3; i++ {
		emb, err := store.Embedding("P2")
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{4, 3}, emb.Shape())
		assert.Equal(t, float32(111), emb.AsFloat32()[11])
	}
	stats := store.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Hits)

	_, err = store.Embedding("P9")
	assert.ErrorIs(t, err, dataset.ErrEmbeddingNotFound)
}

func TestStore_RejectsMixedDims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.safetensors")
	require.NoError(t, dataset.WriteStore(path, "m", -1, map[string]*tensor.RawTensor{
		"A": embedding(t, 2, 3, 0),
		"B": embedding(t, 2, 4, 0),
	}))
	_, err := dataset.OpenStore(path, 0)
	assert.Error(t, err)
}
