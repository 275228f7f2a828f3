// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float32 arithmetic
//   - Row broadcasting for bias addition
//   - Row loops fanned out over a configurable number of workers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/deepfold/backend/cpu"
//	    "github.com/born-ml/deepfold/head"
//	)
//
//	func main() {
//	    backend := cpu.NewWithWorkers(4)
//	    h, err := head.New(head.Config{EmbedDim: 1280, NumLabels: 500, Strategy: head.Mean}, backend)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
