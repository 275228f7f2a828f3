// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/deepfold/internal/backend/cpu"
	"github.com/born-ml/deepfold/internal/parallel"
	"github.com/born-ml/deepfold/tensor"
)

// Backend represents the CPU backend implementation.
//
// CPU backend provides pure Go implementations of the tensor operations, with row
// loops split across worker goroutines.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend using all available CPUs.
//
// Example:
//
//	import (
//	    "github.com/born-ml/deepfold/backend/cpu"
//	    "github.com/born-ml/deepfold/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithWorkers creates a CPU backend limited to n worker goroutines. n <= 1 runs
// every operation on the calling goroutine.
func NewWithWorkers(n int) *Backend {
	return internalcpu.NewWithConfig(parallel.WithWorkers(n))
}
