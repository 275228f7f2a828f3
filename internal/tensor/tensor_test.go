package tensor_test

import (
	"testing"

	"github.com/born-ml/deepfold/internal/backend/cpu"
	"github.com/born-ml/deepfold/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype tensor.DataType
		size  int
		name  string
	}{
		{tensor.Float32, 4, "float32"},
		{tensor.Int32, 4, "int32"},
		{tensor.Int64, 8, "int64"},
		{tensor.Uint8, 1, "uint8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.size, tt.dtype.Size())
		assert.Equal(t, tt.name, tt.dtype.String())
	}
}

func TestShape(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.True(t, s.Equal(s.Clone()))
	assert.False(t, s.Equal(tensor.Shape{2, 3}))
	assert.Equal(t, 1, tensor.Shape{}.NumElements())
	assert.Equal(t, 0, tensor.Shape{0, 4}.NumElements())
	assert.NoError(t, tensor.Shape{0, 4}.Validate())
	assert.Error(t, tensor.Shape{-1, 4}.Validate())
}

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, float32(6), x.At(1, 2))

	x.Set(9, 0, 1)
	assert.Equal(t, []float32{1, 9, 3, 4, 5, 6}, x.Data())

	_, err = tensor.FromSlice([]float32{1, 2}, tensor.Shape{3}, backend)
	assert.Error(t, err)
}

func TestAtOutOfBoundsPanics(t *testing.T) {
	x := tensor.Zeros[float32](tensor.Shape{2, 2}, cpu.New())
	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestNarrowAndRow(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{
		0, 1,
		2, 3,
		4, 5,
		6, 7,
	}, tensor.Shape{4, 2}, backend)
	require.NoError(t, err)

	mid := x.Narrow(1, 3)
	assert.Equal(t, tensor.Shape{2, 2}, mid.Shape())
	assert.Equal(t, []float32{2, 3, 4, 5}, mid.Data())

	empty := x.Narrow(1, 1)
	assert.Equal(t, tensor.Shape{0, 2}, empty.Shape())
	assert.Empty(t, empty.Data())

	row := x.Row(3)
	assert.Equal(t, tensor.Shape{2}, row.Shape())
	assert.Equal(t, []float32{6, 7}, row.Data())

	// Narrow copies.
	mid.Set(100, 0, 0)
	assert.Equal(t, float32(2), x.At(1, 0))

	assert.Panics(t, func() { x.Narrow(2, 5) })
}

func TestStackUnbind(t *testing.T) {
	backend := cpu.New()
	a, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	b, _ := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)

	s := tensor.Stack([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, b})
	assert.Equal(t, tensor.Shape{2, 2}, s.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4}, s.Data())

	parts := s.Unbind()
	require.Len(t, parts, 2)
	assert.Equal(t, []float32{3, 4}, parts[1].Data())

	c, _ := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	assert.Panics(t, func() {
		tensor.Stack([]*tensor.Tensor[float32, *cpu.CPUBackend]{a, c})
	})
}

func TestReshape(t *testing.T) {
	x := tensor.Zeros[float32](tensor.Shape{2, 6}, cpu.New())
	assert.Equal(t, tensor.Shape{3, 4}, x.Reshape(3, -1).Shape())
	assert.Equal(t, tensor.Shape{12}, x.Reshape(-1).Shape())
	assert.Panics(t, func() { x.Reshape(5, -1) })
}

func TestFullAndItem(t *testing.T) {
	x := tensor.Full[float32](tensor.Shape{1}, 2.5, cpu.New())
	assert.Equal(t, float32(2.5), x.Item())
	assert.Panics(t, func() { tensor.Zeros[float32](tensor.Shape{2}, cpu.New()).Item() })
}

func TestRawFromBytes(t *testing.T) {
	raw, err := tensor.RawFromBytes(make([]byte, 8), tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, raw.AsFloat32())

	_, err = tensor.RawFromBytes(make([]byte, 7), tensor.Shape{2}, tensor.Float32, tensor.CPU)
	assert.Error(t, err)
	assert.Panics(t, func() { raw.AsInt32() })
}
