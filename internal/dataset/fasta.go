package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/koeng101/dnadesign/lib/bio"
)

// Record is one protein sequence.
type Record struct {
	ID       string // First whitespace-separated field of the FASTA header
	Sequence string // Upper-cased residues
}

// ReadFasta reads every record of a FASTA file.
func ReadFasta(path string) ([]Record, error) {
	//nolint:gosec // G304: path is chosen by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fasta: %w", err)
	}
	defer f.Close()

	records, err := ParseFasta(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ParseFasta reads FASTA records from r. Duplicate IDs are an error.
func ParseFasta(r io.Reader) ([]Record, error) {
	parser := bio.NewFastaParser(r)
	seen := make(map[string]bool)
	var records []Record
	for {
		protein, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
		}

		fields := strings.Fields(protein.Identifier)
		if len(fields) == 0 {
			return nil, fmt.Errorf("record %d: empty identifier", len(records)+1)
		}
		id := fields[0]
		if seen[id] {
			return nil, fmt.Errorf("duplicate sequence id %q", id)
		}
		seen[id] = true
		records = append(records, Record{ID: id, Sequence: strings.ToUpper(protein.Sequence)})
	}
	return records, nil
}
