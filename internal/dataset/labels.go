package dataset

import (
	"sort"
	"strings"
)

// LabelMap assigns each GO term a fixed column in the multi-hot label vector.
type LabelMap struct {
	terms []string
	index map[string]int
}

// NewLabelMap builds a map over the sorted union of terms in anns.
func NewLabelMap(anns []Annotation) *LabelMap {
	set := make(map[string]struct{})
	for _, a := range anns {
		for _, t := range a.Terms {
			set[t] = struct{}{}
		}
	}
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return LabelMapFromTerms(terms)
}

// LabelMapFromTerms builds a map with terms in the given order.
func LabelMapFromTerms(terms []string) *LabelMap {
	m := &LabelMap{terms: terms, index: make(map[string]int, len(terms))}
	for i, t := range terms {
		m.index[t] = i
	}
	return m
}

// ParseLabelMap is the inverse of LabelMap.String.
func ParseLabelMap(s string) *LabelMap {
	if s == "" {
		return LabelMapFromTerms(nil)
	}
	return LabelMapFromTerms(strings.Split(s, ","))
}

// String joins the terms with commas, in column order.
func (m *LabelMap) String() string {
	return strings.Join(m.terms, ",")
}

// Len returns the number of labels.
func (m *LabelMap) Len() int {
	return len(m.terms)
}

// Index returns the column of term.
func (m *LabelMap) Index(term string) (int, bool) {
	i, ok := m.index[term]
	return i, ok
}

// Term returns the term in column i.
func (m *LabelMap) Term(i int) string {
	return m.terms[i]
}

// Terms returns all terms in column order.
func (m *LabelMap) Terms() []string {
	return m.terms
}

// Encode returns the multi-hot vector of terms. Unknown terms are ignored.
func (m *LabelMap) Encode(terms []string) []float32 {
	v := make([]float32, len(m.terms))
	for _, t := range terms {
		if i, ok := m.index[t]; ok {
			v[i] = 1
		}
	}
	return v
}
