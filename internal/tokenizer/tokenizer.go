package tokenizer

// Tokenizer maps protein sequences to the token IDs a backbone consumes.
type Tokenizer interface {
	// Encode converts a sequence to token IDs, special tokens included.
	Encode(seq string) ([]int32, error)

	// Decode converts token IDs back to residues, skipping special tokens.
	Decode(tokens []int32) (string, error)

	// Length is the number of residue tokens Encode keeps for seq after truncation.
	// Pooling reads exactly this many rows after the class token.
	Length(seq string) int

	// MaxLen is the truncation limit in tokens; 0 means unlimited.
	MaxLen() int

	VocabSize() int

	// Special token IDs.
	BosToken() int32
	EosToken() int32
	PadToken() int32
	UnkToken() int32

	IsSpecialToken(token int32) bool
}
