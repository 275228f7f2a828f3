// Package metrics scores multi-label predictions: micro precision, recall and F1 at a
// decision threshold, subset accuracy, micro ROC-AUC and the protein-centric Fmax.
package metrics

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// DefaultThreshold is the probability at which a label counts as predicted.
const DefaultThreshold = 0.2

// ErrShapeMismatch reports probabilities and labels of different sizes.
var ErrShapeMismatch = errors.New("metrics: shape mismatch")

// Result holds one evaluation.
type Result struct {
	Threshold     float64 `yaml:"threshold"`
	Precision     float64 `yaml:"precision"` // micro
	Recall        float64 `yaml:"recall"`    // micro
	F1            float64 `yaml:"f1"`        // micro
	Accuracy      float64 `yaml:"accuracy"`  // exact match of the whole label vector
	ROCAUC        float64 `yaml:"roc_auc"`   // micro; NaN when only one class is present
	Fmax          float64 `yaml:"fmax"`
	FmaxThreshold float64 `yaml:"fmax_threshold"`
	Samples       int     `yaml:"samples"`
}

// Attrs returns the result as slog attributes.
func (r Result) Attrs() []any {
	return []any{
		slog.Float64("precision", r.Precision),
		slog.Float64("recall", r.Recall),
		slog.Float64("f1", r.F1),
		slog.Float64("accuracy", r.Accuracy),
		slog.Float64("roc_auc", r.ROCAUC),
		slog.Float64("fmax", r.Fmax),
		slog.Int("samples", r.Samples),
	}
}

// Accumulator collects predictions across batches.
type Accumulator struct {
	numLabels int
	probs     []float32
	labels    []float32
}

// NewAccumulator creates an accumulator for numLabels columns.
func NewAccumulator(numLabels int) *Accumulator {
	return &Accumulator{numLabels: numLabels}
}

// Add appends a batch of row-major [n, numLabels] probabilities and multi-hot labels.
func (a *Accumulator) Add(probs, labels []float32) error {
	if len(probs) != len(labels) || a.numLabels <= 0 || len(probs)%a.numLabels != 0 {
		return fmt.Errorf("%w: %d probabilities, %d labels, %d columns", ErrShapeMismatch, len(probs), len(labels), a.numLabels)
	}
	a.probs = append(a.probs, probs...)
	a.labels = append(a.labels, labels...)
	return nil
}

// Len returns the number of accumulated samples.
func (a *Accumulator) Len() int {
	if a.numLabels == 0 {
		return 0
	}
	return len(a.probs) / a.numLabels
}

// Result scores everything added so far.
func (a *Accumulator) Result(threshold float64) (Result, error) {
	return Compute(a.probs, a.labels, a.numLabels, threshold)
}

// Compute scores row-major [n, numLabels] probabilities against multi-hot labels.
func Compute(probs, labels []float32, numLabels int, threshold float64) (Result, error) {
	if len(probs) != len(labels) || numLabels <= 0 || len(probs)%numLabels != 0 {
		return Result{}, fmt.Errorf("%w: %d probabilities, %d labels, %d columns", ErrShapeMismatch, len(probs), len(labels), numLabels)
	}

	r := Result{Threshold: threshold, Samples: len(probs) / numLabels}
	var tp, fp, fn float64
	exact := 0
	for row := 0; row < r.Samples; row++ {
		match := true
		for j := row * numLabels; j < (row+1)*numLabels; j++ {
			pred := float64(probs[j]) >= threshold
			pos := labels[j] > 0.5
			switch {
			case pred && pos:
				tp++
			case pred:
				fp++
			case pos:
				fn++
			}
			if pred != pos {
				match = false
			}
		}
		if match {
			exact++
		}
	}

	r.Precision = ratio(tp, tp+fp)
	r.Recall = ratio(tp, tp+fn)
	r.F1 = ratio(2*r.Precision*r.Recall, r.Precision+r.Recall)
	if r.Samples > 0 {
		r.Accuracy = float64(exact) / float64(r.Samples)
	}
	r.ROCAUC = rocAUC(probs, labels)
	r.Fmax, r.FmaxThreshold = fmax(probs, labels, numLabels)
	return r, nil
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// rocAUC is the Mann-Whitney statistic over all (probability, label) pairs, with tied
// scores sharing their average rank.
func rocAUC(probs, labels []float32) float64 {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return probs[idx[a]] < probs[idx[b]] })

	var pos, neg, rankSum float64
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && probs[idx[end]] == probs[idx[start]] {
			end++
		}
		avgRank := float64(start+end+1) / 2 // 1-based ranks start+1..end
		for _, i := range idx[start:end] {
			if labels[i] > 0.5 {
				pos++
				rankSum += avgRank
			} else {
				neg++
			}
		}
		start = end
	}
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// fmax sweeps thresholds 0.01..0.99. At each threshold precision averages over proteins
// with at least one prediction and recall over proteins with at least one label.
func fmax(probs, labels []float32, numLabels int) (best, bestT float64) {
	n := len(probs) / numLabels
	for step := 1; step <= 99; step++ {
		t := float64(step) / 100
		var precSum, recSum float64
		predicted, annotated := 0, 0
		for row := 0; row < n; row++ {
			var tp, npred, npos float64
			for j := row * numLabels; j < (row+1)*numLabels; j++ {
				pred := float64(probs[j]) >= t
				pos := labels[j] > 0.5
				if pred {
					npred++
				}
				if pos {
					npos++
				}
				if pred && pos {
					tp++
				}
			}
			if npred > 0 {
				precSum += tp / npred
				predicted++
			}
			if npos > 0 {
				recSum += tp / npos
				annotated++
			}
		}
		if predicted == 0 || annotated == 0 {
			continue
		}
		p := precSum / float64(predicted)
		rc := recSum / float64(annotated)
		if f := ratio(2*p*rc, p+rc); f > best {
			best, bestT = f, t
		}
	}
	return best, bestT
}
