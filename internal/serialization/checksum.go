package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/born-ml/deepfold/internal/tensor"
)

// ChecksumTensors computes a hex SHA-256 over the tensors' names and bytes in sorted name
// order. Two state dicts with identical contents always hash the same.
func ChecksumTensors(tensors map[string]*tensor.RawTensor) string {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(tensors[name].Data())
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateChecksum compares a computed checksum against a stored one.
// Returns ErrChecksumMismatch if they differ.
func ValidateChecksum(computed, stored string) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
