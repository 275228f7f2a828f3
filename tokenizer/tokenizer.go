// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer provides protein sequence tokenization with the ESM alphabet.
//
// Example usage:
//
//	import "github.com/born-ml/deepfold/tokenizer"
//
//	tok := tokenizer.NewESM(1024)
//
//	// <cls> M K V <eos>
//	ids, err := tok.Encode("MKV")
//
//	// Residue count the head pools over
//	n := tok.Length("MKV") // 3
//
//	// Padded batch with attention mask
//	batch := tok.EncodeBatch([]string{"MKV", "MK"})
package tokenizer

import (
	"github.com/born-ml/deepfold/internal/tokenizer"
)

// Tokenizer is the core interface for sequence tokenization.
type Tokenizer = tokenizer.Tokenizer

// ESM tokenizes protein sequences with the ESM alphabet.
type ESM = tokenizer.ESM

// Batch is a padded batch of encodings.
type Batch = tokenizer.Batch

// Special token IDs of the ESM alphabet.
const (
	ClsToken  = tokenizer.ClsToken
	PadToken  = tokenizer.PadToken
	EosToken  = tokenizer.EosToken
	UnkToken  = tokenizer.UnkToken
	MaskToken = tokenizer.MaskToken
)

// ErrInvalidToken is returned by Decode for IDs outside the vocabulary.
var ErrInvalidToken = tokenizer.ErrInvalidToken

// NewESM creates a tokenizer that truncates encodings to maxLen tokens, class and end
// tokens included. A maxLen <= 0 disables truncation.
func NewESM(maxLen int) *ESM {
	return tokenizer.NewESM(maxLen)
}

// Compile-time check that ESM implements Tokenizer.
var _ Tokenizer = (*ESM)(nil)
