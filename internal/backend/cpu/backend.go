// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/internal/tensor"
)

// CPUBackend implements tensor operations on CPU. Row loops are fanned out with
// internal/parallel.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend using one worker per CPU.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallelism config.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Parallel returns the backend's parallelism config.
func (cpu *CPUBackend) Parallel() parallel.Config {
	return cpu.par
}

// Add performs element-wise addition. b may be a [1, n] row broadcast over a [m, n] a.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with row broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with row broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// MulScalar multiplies every element of x by scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	requireFloat32("mul_scalar", x)
	result := cpu.alloc("mul_scalar", x.Shape())
	out := result.AsFloat32()
	for i, v := range x.AsFloat32() {
		out[i] = v * scalar
	}
	return result
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	requireFloat32(op, a)
	requireFloat32(op, b)

	result := cpu.alloc(op, a.Shape())
	out := result.AsFloat32()
	av := a.AsFloat32()
	bv := b.AsFloat32()

	if a.Shape().Equal(b.Shape()) {
		for i := range out {
			out[i] = f(av[i], bv[i])
		}
		return result
	}

	// Row broadcast: a [m, n], b [1, n] or [n].
	as := a.Shape()
	n := len(bv)
	if len(as) != 2 || as[1] != n || b.NumElements() != n {
		panic(fmt.Sprintf("%s: shapes not compatible for broadcasting: %v vs %v", op, a.Shape(), b.Shape()))
	}
	parallel.For(as[0], func(i int) {
		row := av[i*n : (i+1)*n]
		dst := out[i*n : (i+1)*n]
		for j := range dst {
			dst[j] = f(row[j], bv[j])
		}
	}, cpu.par)
	return result
}

func (cpu *CPUBackend) alloc(op string, shape tensor.Shape) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

func requireFloat32(op string, x *tensor.RawTensor) {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s", op, x.DType()))
	}
}
