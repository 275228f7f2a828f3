package serialization

import (
	"fmt"

	"github.com/born-ml/deepfold/internal/tensor"
)

// Format limits.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorNameLen = 1024
	metadataKey      = "__metadata__"
)

// TensorInfo describes one tensor in a SafeTensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) relative to the data section
}

// Size returns the byte length of the tensor's data.
func (ti TensorInfo) Size() int64 {
	return ti.DataOffsets[1] - ti.DataOffsets[0]
}

// TensorShape returns the shape as a tensor.Shape.
func (ti TensorInfo) TensorShape() tensor.Shape {
	shape := make(tensor.Shape, len(ti.Shape))
	for i, d := range ti.Shape {
		shape[i] = int(d)
	}
	return shape
}

// dtypeToSafeTensors converts tensor.DataType to the SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Int32:
		return "I32", nil
	case tensor.Int64:
		return "I64", nil
	case tensor.Uint8:
		return "U8", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

// dtypeFromSafeTensors converts a SafeTensors dtype string to tensor.DataType.
func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "I32":
		return tensor.Int32, nil
	case "I64":
		return tensor.Int64, nil
	case "U8":
		return tensor.Uint8, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, s)
	}
}
