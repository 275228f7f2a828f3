package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalidNamespace reports a namespace other than cco, mfo, bpo or empty.
var ErrInvalidNamespace = errors.New("invalid namespace")

// Namespaces are the Gene Ontology sub-ontologies.
var Namespaces = []string{"cco", "mfo", "bpo"}

// Annotation lists the GO terms of one protein in one namespace.
type Annotation struct {
	ID        string
	Namespace string
	Terms     []string
}

// ValidateNamespace accepts an empty namespace (all) or one of Namespaces.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return nil
	}
	for _, n := range Namespaces {
		if ns == n {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (want cco, mfo, bpo or empty)", ErrInvalidNamespace, ns)
}

// ReadAnnotations reads a TSV annotation file, keeping rows in namespace (all rows when
// namespace is empty).
func ReadAnnotations(path, namespace string) ([]Annotation, error) {
	//nolint:gosec // G304: path is chosen by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotations: %w", err)
	}
	defer f.Close()

	anns, err := ParseAnnotations(f, namespace)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return anns, nil
}

// ParseAnnotations parses "id<TAB>namespace<TAB>term[,term...]" lines. Blank lines and
// lines starting with '#' are skipped.
func ParseAnnotations(r io.Reader, namespace string) ([]Annotation, error) {
	if err := ValidateNamespace(namespace); err != nil {
		return nil, err
	}

	var anns []Annotation
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 tab-separated fields, got %d", line, len(fields))
		}
		ns := strings.TrimSpace(fields[1])
		if err := ValidateNamespace(ns); err != nil || ns == "" {
			return nil, fmt.Errorf("line %d: %w: %q", line, ErrInvalidNamespace, ns)
		}
		if namespace != "" && ns != namespace {
			continue
		}

		var terms []string
		for _, term := range strings.Split(fields[2], ",") {
			if term = strings.TrimSpace(term); term != "" {
				terms = append(terms, term)
			}
		}
		anns = append(anns, Annotation{ID: strings.TrimSpace(fields[0]), Namespace: ns, Terms: terms})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read annotations: %w", err)
	}
	return anns, nil
}
