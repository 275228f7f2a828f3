package cpu

import (
	"fmt"

	"github.com/born-ml/deepfold/internal/tensor"
)

// SumDim sums x along dim. Negative dims count from the end.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("sum_dim", x, dim, keepDim, false)
}

// MeanDim averages x along dim. A zero-sized dim produces zeros rather than NaN.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduceDim("mean_dim", x, dim, keepDim, true)
}

func (cpu *CPUBackend) reduceDim(op string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	requireFloat32(op, x)
	shape := x.Shape()
	rank := len(shape)
	if dim < 0 {
		dim += rank
	}
	if dim < 0 || dim >= rank {
		panic(fmt.Sprintf("%s: dimension %d out of range for shape %v", op, dim, shape))
	}

	// View x as [outer, size, inner] around dim.
	outer, inner := 1, 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	for i := dim + 1; i < rank; i++ {
		inner *= shape[i]
	}
	size := shape[dim]

	outShape := make(tensor.Shape, 0, rank)
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := cpu.alloc(op, outShape)
	src := x.AsFloat32()
	dst := result.AsFloat32()
	for o := 0; o < outer; o++ {
		acc := dst[o*inner : (o+1)*inner]
		for s := 0; s < size; s++ {
			base := (o*size + s) * inner
			for i := range acc {
				acc[i] += src[base+i]
			}
		}
		if mean && size > 0 {
			for i := range acc {
				acc[i] /= float32(size)
			}
		}
	}
	return result
}
