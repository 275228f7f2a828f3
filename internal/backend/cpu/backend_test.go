package cpu

import (
	"testing"

	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), data)
	return r
}

func TestMatMul(t *testing.T) {
	backend := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	c := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, c.AsFloat32())

	assert.Panics(t, func() { backend.MatMul(a, a) })
}

func TestMatMul_ParallelMatchesSequential(t *testing.T) {
	m, k, n := 37, 11, 5
	a := make([]float32, m*k)
	b := make([]float32, k*n)
	for i := range a {
		a[i] = float32(i%7) - 3
	}
	for i := range b {
		b[i] = float32(i%5) * 0.5
	}

	seq := NewWithConfig(parallel.Config{Enabled: false}).MatMul(raw(t, a, m, k), raw(t, b, k, n))
	par := NewWithConfig(parallel.WithWorkers(4)).MatMul(raw(t, a, m, k), raw(t, b, k, n))
	assert.Equal(t, seq.AsFloat32(), par.AsFloat32())
}

func TestTranspose(t *testing.T) {
	out := New().Transpose(raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3))
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())
}

func TestAdd_RowBroadcast(t *testing.T) {
	backend := New()
	a := raw(t, []float32{1, 2, 3, 4}, 2, 2)

	same := backend.Add(a, raw(t, []float32{1, 1, 1, 1}, 2, 2))
	assert.Equal(t, []float32{2, 3, 4, 5}, same.AsFloat32())

	bcast := backend.Add(a, raw(t, []float32{10, 20}, 1, 2))
	assert.Equal(t, []float32{11, 22, 13, 24}, bcast.AsFloat32())

	assert.Panics(t, func() { backend.Add(a, raw(t, []float32{1, 2, 3}, 3)) })
}

func TestSubMulScalar(t *testing.T) {
	backend := New()
	a := raw(t, []float32{4, 6}, 2)
	b := raw(t, []float32{1, 2}, 2)

	assert.Equal(t, []float32{3, 4}, backend.Sub(a, b).AsFloat32())
	assert.Equal(t, []float32{4, 12}, backend.Mul(a, b).AsFloat32())
	assert.Equal(t, []float32{2, 3}, backend.MulScalar(a, 0.5).AsFloat32())
}

func TestReduceDim(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 3, 2)

	sum0 := backend.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{2}, sum0.Shape())
	assert.Equal(t, []float32{9, 12}, sum0.AsFloat32())

	mean0 := backend.MeanDim(x, 0, true)
	assert.Equal(t, tensor.Shape{1, 2}, mean0.Shape())
	assert.Equal(t, []float32{3, 4}, mean0.AsFloat32())

	mean1 := backend.MeanDim(x, -1, false)
	assert.Equal(t, []float32{1.5, 3.5, 5.5}, mean1.AsFloat32())
}

func TestMeanDim_EmptyIsZero(t *testing.T) {
	x, err := tensor.NewRaw(tensor.Shape{0, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	out := New().MeanDim(x, 0, false)
	assert.Equal(t, []float32{0, 0, 0}, out.AsFloat32())
}
