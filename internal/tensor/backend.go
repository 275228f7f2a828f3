package tensor

// Backend defines the interface that compute backends implement.
// Backends handle the arithmetic; shape bookkeeping and slicing live in this package.
//
// Implementations:
//   - CPU: pure Go, row loops fanned out over internal/parallel
type Backend interface {
	// Element-wise binary operations. b may be a [1, n] row broadcast against a [m, n] a.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor // (M, K) @ (K, N) -> (M, N)
	Transpose(t *RawTensor) *RawTensor // 2D only

	// Scalar operations
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// Reduction operations
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
