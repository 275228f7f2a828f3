// Package serialization reads and writes SafeTensors files.
//
// SafeTensors is the format HuggingFace uses for model weights and the format the
// embedding store and training checkpoints use here:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON object name -> {dtype, shape, data_offsets}, plus "__metadata__"]
//	[tensor data: raw little-endian bytes]
//
// Example usage:
//
//	err := serialization.WriteSafeTensors("head.safetensors", linear.StateDict(), nil)
//
//	r, err := serialization.OpenSafeTensors("embeddings.safetensors")
//	defer r.Close()
//	raw, err := r.ReadTensor("P12345")
package serialization
