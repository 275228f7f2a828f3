// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the typed tensors that carry embeddings, logits and labels
// through deepfold.
//
// # Overview
//
// A Tensor[T, B] pairs a row-major byte buffer (RawTensor) with the Backend that runs
// its arithmetic. The package covers what a pooling and classification head needs:
//   - creation from slices and fills
//   - slicing along the first dimension (Narrow, Row, Unbind, Stack)
//   - 2-D arithmetic (MatMul, Transpose, row-broadcast Add, reductions)
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/deepfold/backend/cpu"
//	    "github.com/born-ml/deepfold/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // One protein: class token plus three residues, embedding dim 2
//	    emb, _ := tensor.FromSlice([]float32{
//	        9, 9,
//	        1, 2,
//	        3, 4,
//	        5, 6,
//	    }, tensor.Shape{4, 2}, backend)
//
//	    residues := emb.Narrow(1, 4)       // [3, 2]
//	    mean := residues.MeanDim(0, false) // [2]
//	}
//
// # Supported Data Types
//
// float32 is used for all computation. int32, int64 and uint8 tensors can be created
// and stored (token ids, masks).
//
// # Memory
//
// Narrow, Row and Unbind copy their rows; tensors never alias each other's buffers.
package tensor
