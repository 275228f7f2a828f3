// Package tokenizer maps protein sequences onto backbone vocabulary IDs.
//
// The ESM alphabet wraps every sequence in a class token and an end token:
//
//	<cls> M K T A Y ... <eos> <pad> <pad>
//
// Truncation keeps both special tokens, so a sequence longer than maxLen-2 residues
// contributes only its first maxLen-2 residues. The resulting residue count is the
// sequence's length as seen by the classification head.
//
// Example usage:
//
//	tok := tokenizer.NewESM(1024)
//
//	ids, err := tok.Encode("MKTAYIAKQR")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	batch := tok.EncodeBatch([]string{"MKT", "MKTAYIA"})
//	// batch.IDs is [2][9], batch.Lengths is [3 7]
package tokenizer
