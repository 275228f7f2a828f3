package trainer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/born-ml/deepfold/internal/backbone"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/tensor"
)

// Prediction is one protein's label probabilities.
type Prediction struct {
	ID     string
	Scores []float32 // Indexed like the label map
}

// Predict runs the head in eval mode over every batch of loader. Labels are ignored.
func Predict[B tensor.Backend](ctx context.Context, h *head.Head[B], bb backbone.Backbone[B], loader *dataset.Loader) ([]Prediction, error) {
	h.Train(false)
	var preds []Prediction
	for i, b := range loader.Epoch(0) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embs, err := bb.Embed(ctx, b.IDs)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		out, err := h.Compute(embs, b.Lengths, nil)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		probs := out.Probabilities().Data()
		n := h.NumLabels()
		for j, id := range b.IDs {
			scores := make([]float32, n)
			copy(scores, probs[j*n:(j+1)*n])
			preds = append(preds, Prediction{ID: id, Scores: scores})
		}
	}
	return preds, nil
}

// WritePredictions writes "id<TAB>term<TAB>score" lines for every score >= threshold,
// highest score first within each protein.
func WritePredictions(w io.Writer, preds []Prediction, labels *dataset.LabelMap, threshold float64) error {
	for _, p := range preds {
		idx := make([]int, 0, len(p.Scores))
		for j, s := range p.Scores {
			if float64(s) >= threshold {
				idx = append(idx, j)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool { return p.Scores[idx[a]] > p.Scores[idx[b]] })
		for _, j := range idx {
			score := strconv.FormatFloat(float64(p.Scores[j]), 'f', 4, 32)
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, labels.Term(j), score); err != nil {
				return err
			}
		}
	}
	return nil
}
