package dataset

import (
	"fmt"
	"math/rand"
)

// Example is one protein with its multi-hot labels.
type Example struct {
	ID       string
	Sequence string
	Labels   []float32 // nil when the protein has no annotation (prediction)
}

// Join pairs records with their annotations. Records without an annotation are dropped
// unless keepUnlabeled is set, in which case they carry nil labels.
func Join(records []Record, anns []Annotation, labels *LabelMap, keepUnlabeled bool) []Example {
	terms := make(map[string][]string, len(anns))
	for _, a := range anns {
		terms[a.ID] = append(terms[a.ID], a.Terms...)
	}

	examples := make([]Example, 0, len(records))
	for _, r := range records {
		t, ok := terms[r.ID]
		if !ok && !keepUnlabeled {
			continue
		}
		ex := Example{ID: r.ID, Sequence: r.Sequence}
		if ok {
			ex.Labels = labels.Encode(t)
		}
		examples = append(examples, ex)
	}
	return examples
}

// LengthFunc returns the number of residue tokens a sequence contributes.
type LengthFunc func(seq string) int

// Batch is one mini-batch.
type Batch struct {
	IDs       []string
	Lengths   []int
	Labels    []float32 // Row-major [len(IDs), NumLabels]; nil if any example is unlabeled
	NumLabels int
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int { return len(b.IDs) }

// Loader splits examples into mini-batches, reshuffling every epoch when enabled.
// The order for a given (seed, epoch) is deterministic.
type Loader struct {
	examples  []Example
	batchSize int
	shuffle   bool
	seed      int64
	numLabels int
	length    LengthFunc
}

// NewLoader creates a loader. length maps a sequence to its tokenized residue count.
func NewLoader(examples []Example, batchSize int, shuffle bool, seed int64, numLabels int, length LengthFunc) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	for _, ex := range examples {
		if ex.Labels != nil && len(ex.Labels) != numLabels {
			return nil, fmt.Errorf("example %s has %d labels, expected %d", ex.ID, len(ex.Labels), numLabels)
		}
	}
	return &Loader{
		examples:  examples,
		batchSize: batchSize,
		shuffle:   shuffle,
		seed:      seed,
		numLabels: numLabels,
		length:    length,
	}, nil
}

// Len returns the number of examples.
func (l *Loader) Len() int { return len(l.examples) }

// NumBatches returns the number of batches per epoch; the last one may be short.
func (l *Loader) NumBatches() int {
	return (len(l.examples) + l.batchSize - 1) / l.batchSize
}

// Epoch returns the batches of the given epoch.
func (l *Loader) Epoch(epoch int) []Batch {
	order := make([]int, len(l.examples))
	for i := range order {
		order[i] = i
	}
	if l.shuffle {
		//nolint:gosec // G404: reproducible sampling, not security.
		rng := rand.New(rand.NewSource(l.seed + int64(epoch)))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	batches := make([]Batch, 0, l.NumBatches())
	for start := 0; start < len(order); start += l.batchSize {
		end := min(start+l.batchSize, len(order))
		batches = append(batches, l.batch(order[start:end]))
	}
	return batches
}

func (l *Loader) batch(idx []int) Batch {
	b := Batch{
		IDs:       make([]string, len(idx)),
		Lengths:   make([]int, len(idx)),
		NumLabels: l.numLabels,
	}
	labeled := true
	for i, j := range idx {
		ex := l.examples[j]
		b.IDs[i] = ex.ID
		b.Lengths[i] = l.length(ex.Sequence)
		labeled = labeled && ex.Labels != nil
	}
	if labeled {
		b.Labels = make([]float32, 0, len(idx)*l.numLabels)
		for _, j := range idx {
			b.Labels = append(b.Labels, l.examples[j].Labels...)
		}
	}
	return b
}
