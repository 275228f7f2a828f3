package tensor

import "fmt"

// Narrow returns a copy of rows [start, end) along dim 0.
//
// Example:
//
//	emb := tensor.Zeros[float32](Shape{5, 4}, backend)
//	real := emb.Narrow(1, 3) // Shape: [2, 4]
func (t *Tensor[T, B]) Narrow(start, end int) *Tensor[T, B] {
	shape := t.Shape()
	if len(shape) == 0 {
		panic("narrow: scalar tensor")
	}
	if start < 0 || end < start || end > shape[0] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension 0 (size %d)", start, end, shape[0]))
	}

	outShape := shape.Clone()
	outShape[0] = end - start
	raw, err := NewRaw(outShape, t.DType(), t.Device())
	if err != nil {
		panic(err)
	}

	rowBytes := t.raw.Strides()[0] * t.DType().Size()
	copy(raw.Data(), t.raw.Data()[start*rowBytes:end*rowBytes])
	return New[T, B](raw, t.backend)
}

// Row returns a copy of row i along dim 0, with that dimension removed.
func (t *Tensor[T, B]) Row(i int) *Tensor[T, B] {
	row := t.Narrow(i, i+1)
	return New[T, B](row.raw.reshaped(t.Shape()[1:]), t.backend)
}

// Unbind splits t along dim 0 into independent copies.
//
// Example:
//
//	batch := tensor.Zeros[float32](Shape{2, 7, 4}, backend)
//	seqs := batch.Unbind() // 2 tensors of shape [7, 4]
func (t *Tensor[T, B]) Unbind() []*Tensor[T, B] {
	n := t.Shape()[0]
	parts := make([]*Tensor[T, B], n)
	for i := range parts {
		parts[i] = t.Row(i)
	}
	return parts
}

// Stack joins equally shaped tensors along a new leading dimension.
//
// Example:
//
//	a := tensor.Zeros[float32](Shape{4}, backend)
//	b := tensor.Zeros[float32](Shape{4}, backend)
//	s := tensor.Stack([]*Tensor[float32, B]{a, b}) // Shape: [2, 4]
func Stack[T DType, B Backend](tensors []*Tensor[T, B]) *Tensor[T, B] {
	if len(tensors) == 0 {
		panic("stack: at least one tensor required")
	}

	inner := tensors[0].Shape()
	for i, t := range tensors[1:] {
		if !t.Shape().Equal(inner) {
			panic(fmt.Sprintf("stack: tensor %d has shape %v, expected %v", i+1, t.Shape(), inner))
		}
	}

	outShape := append(Shape{len(tensors)}, inner...)
	raw, err := NewRaw(outShape, tensors[0].DType(), tensors[0].Device())
	if err != nil {
		panic(err)
	}

	data := raw.Data()
	size := tensors[0].raw.ByteSize()
	for i, t := range tensors {
		copy(data[i*size:(i+1)*size], t.raw.Data())
	}
	return New[T, B](raw, tensors[0].backend)
}
