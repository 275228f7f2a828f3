package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidToken is returned by Decode for IDs outside the vocabulary.
var ErrInvalidToken = errors.New("invalid token id")

// esmTokens is the ESM-1b alphabet in ID order.
var esmTokens = []string{
	"<cls>", "<pad>", "<eos>", "<unk>",
	"L", "A", "G", "V", "S", "E", "R", "T", "I", "D", "P", "K", "Q", "N", "F", "Y", "M", "H", "W", "C",
	"X", "B", "U", "Z", "O", ".", "-",
	"<null_1>", "<mask>",
}

// Special token IDs of the ESM alphabet.
const (
	ClsToken  int32 = 0
	PadToken  int32 = 1
	EosToken  int32 = 2
	UnkToken  int32 = 3
	MaskToken int32 = 32
)

// MinMaxLen is the smallest usable max length: class token, end token and no residues.
const MinMaxLen = 2

// ESM tokenizes protein sequences with the ESM alphabet.
type ESM struct {
	maxLen int
	index  [256]int32 // residue byte -> ID, UnkToken when absent
}

// NewESM creates a tokenizer that truncates encodings to maxLen tokens.
// A maxLen <= 0 disables truncation.
func NewESM(maxLen int) *ESM {
	if maxLen > 0 && maxLen < MinMaxLen {
		panic(fmt.Sprintf("tokenizer: max length must be at least %d, got %d", MinMaxLen, maxLen))
	}
	e := &ESM{maxLen: maxLen}
	for i := range e.index {
		e.index[i] = UnkToken
	}
	for id, tok := range esmTokens {
		if len(tok) == 1 {
			e.index[tok[0]] = int32(id) //nolint:gosec // G115: alphabet has 33 entries.
		}
	}
	return e
}

// MaxLen returns the truncation length (0 = none).
func (e *ESM) MaxLen() int {
	return e.maxLen
}

// Length returns the number of residue tokens seq contributes after truncation.
// Each rune is one residue.
func (e *ESM) Length(seq string) int {
	n := utf8.RuneCountInString(seq)
	if e.maxLen > 0 {
		n = min(n, e.maxLen-MinMaxLen)
	}
	return n
}

// Encode returns <cls>, the residue IDs and <eos>. Lower-case residues are accepted;
// characters outside the alphabet, non-ASCII runes included, map to <unk>.
func (e *ESM) Encode(text string) ([]int32, error) {
	n := e.Length(text)
	ids := make([]int32, 0, n+MinMaxLen)
	ids = append(ids, ClsToken)
	for _, r := range text {
		if len(ids) > n {
			break
		}
		if r >= utf8.RuneSelf {
			ids = append(ids, UnkToken)
			continue
		}
		c := byte(r) //nolint:gosec // G115: r < utf8.RuneSelf.
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		ids = append(ids, e.index[c])
	}
	return append(ids, EosToken), nil
}

// Decode returns the residues in tokens, skipping special tokens.
func (e *ESM) Decode(tokens []int32) (string, error) {
	var sb strings.Builder
	for _, id := range tokens {
		if id < 0 || int(id) >= len(esmTokens) {
			return "", fmt.Errorf("%w: %d", ErrInvalidToken, id)
		}
		if e.IsSpecialToken(id) {
			continue
		}
		sb.WriteString(esmTokens[id])
	}
	return sb.String(), nil
}

// VocabSize returns the alphabet size.
func (e *ESM) VocabSize() int { return len(esmTokens) }

// BosToken returns the class token, which ESM places where BOS would go.
func (e *ESM) BosToken() int32 { return ClsToken }

// EosToken returns the end token.
func (e *ESM) EosToken() int32 { return EosToken }

// PadToken returns the padding token.
func (e *ESM) PadToken() int32 { return PadToken }

// UnkToken returns the unknown token.
func (e *ESM) UnkToken() int32 { return UnkToken }

// IsSpecialToken reports whether token is one of the bracketed tokens.
func (e *ESM) IsSpecialToken(token int32) bool {
	return token == ClsToken || token == PadToken || token == EosToken || token == UnkToken ||
		token == 31 || token == MaskToken
}

// Token returns the string form of id.
func (e *ESM) Token(id int32) string {
	if id < 0 || int(id) >= len(esmTokens) {
		return ""
	}
	return esmTokens[id]
}

// Batch is a padded batch of encodings.
type Batch struct {
	IDs     [][]int32 // [N][maxTokens], right-padded with <pad>
	Mask    [][]bool  // true for real tokens, <cls> and <eos> included
	Lengths []int     // residue count per sequence
}

// EncodeBatch encodes seqs and pads them to the longest encoding.
func (e *ESM) EncodeBatch(seqs []string) Batch {
	b := Batch{
		IDs:     make([][]int32, len(seqs)),
		Mask:    make([][]bool, len(seqs)),
		Lengths: make([]int, len(seqs)),
	}
	width := 0
	for i, s := range seqs {
		ids, _ := e.Encode(s) // Encode cannot fail
		b.IDs[i] = ids
		b.Lengths[i] = len(ids) - MinMaxLen
		width = max(width, len(ids))
	}
	for i, ids := range b.IDs {
		mask := make([]bool, width)
		for j := range ids {
			mask[j] = true
		}
		for len(ids) < width {
			ids = append(ids, PadToken)
		}
		b.IDs[i] = ids
		b.Mask[i] = mask
	}
	return b
}

var _ Tokenizer = (*ESM)(nil)
