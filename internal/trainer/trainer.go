// Package trainer runs the epoch loop for the classification head: training with
// gradient accumulation, per-epoch validation, best-model tracking, early stopping and
// checkpointing.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/born-ml/deepfold/internal/backbone"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/metrics"
	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/optim"
	"github.com/born-ml/deepfold/internal/tensor"
	"github.com/google/uuid"
)

// Checkpoint file names inside the output directory.
const (
	BestCheckpoint = "best.safetensors"
)

// CheckpointName returns the file name of the checkpoint written after epoch.
func CheckpointName(epoch int) string {
	return fmt.Sprintf("checkpoint-%d.safetensors", epoch)
}

// ErrUnlabeledBatch is returned when a training or validation batch lacks labels.
var ErrUnlabeledBatch = errors.New("batch has unlabeled examples")

// Options control the epoch loop.
type Options struct {
	Epochs                    int     // Exclusive upper bound of the epoch range
	StartEpoch                int     // First epoch; overrides the resumed epoch when > 0
	LogInterval               int     // Log every N training batches
	GradientAccumulationSteps int     // Batches per optimizer step
	EarlyStoppingPatience     int     // Epochs without improvement before stopping; < 0 disables
	SkipTraining              bool    // Evaluate only
	SkipValidation            bool    // Train only
	SaveCheckpoints           bool    // Write checkpoint-<epoch> and best checkpoints
	OutputDir                 string  // Checkpoint directory
	Threshold                 float64 // Decision threshold for metrics
	Metadata                  map[string]string
}

// Trainer wires a head, its backbone, an optimizer and data loaders together.
type Trainer[B tensor.Backend] struct {
	head      *head.Head[B]
	backbone  backbone.Backbone[B]
	optimizer optim.Optimizer
	scheduler optim.Scheduler
	train     *dataset.Loader
	val       *dataset.Loader
	opts      Options
	logger    *slog.Logger
	backend   B

	runID      string
	startEpoch int
	step       int64
	best       float64
}

// Summary is the outcome of Run.
type Summary struct {
	RunID        string
	EpochsRun    int
	Steps        int64
	BestF1       float64
	BestEpoch    int
	StoppedEarly bool
	Last         metrics.Result // Last validation result
}

// New creates a trainer. val may be nil when validation is skipped; train may be nil when
// training is skipped.
func New[B tensor.Backend](
	h *head.Head[B],
	bb backbone.Backbone[B],
	optimizer optim.Optimizer,
	scheduler optim.Scheduler,
	train, val *dataset.Loader,
	opts Options,
	logger *slog.Logger,
	backend B,
) (*Trainer[B], error) {
	if opts.GradientAccumulationSteps < 1 {
		opts.GradientAccumulationSteps = 1
	}
	if opts.LogInterval < 1 {
		opts.LogInterval = 1
	}
	if opts.Threshold == 0 {
		opts.Threshold = metrics.DefaultThreshold
	}
	if !opts.SkipTraining && train == nil {
		return nil, errors.New("trainer: training loader is required")
	}
	if !opts.SkipValidation && val == nil {
		return nil, errors.New("trainer: validation loader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Trainer[B]{
		head:       h,
		backbone:   bb,
		optimizer:  optimizer,
		scheduler:  scheduler,
		train:      train,
		val:        val,
		opts:       opts,
		logger:     logger,
		backend:    backend,
		runID:      uuid.NewString(),
		startEpoch: opts.StartEpoch,
		best:       math.Inf(-1),
	}, nil
}

// RunID identifies this run in checkpoints and logs.
func (t *Trainer[B]) RunID() string {
	return t.runID
}

// Resume restores head and optimizer state from a checkpoint. Training continues after the
// checkpoint's epoch unless Options.StartEpoch is set.
func (t *Trainer[B]) Resume(path string) error {
	ckpt, err := nn.LoadCheckpoint(path, t.head, t.optimizer)
	if err != nil {
		return err
	}
	t.step = ckpt.Step
	t.best = ckpt.BestMetric
	if t.opts.StartEpoch == 0 {
		t.startEpoch = ckpt.Epoch + 1
	}
	t.logger.Info("resumed from checkpoint",
		"path", path,
		"epoch", ckpt.Epoch,
		"step", ckpt.Step,
		"best_f1", ckpt.BestMetric,
		"previous_run", ckpt.RunID,
	)
	return nil
}

// Run executes epochs [start, Epochs). Cancelling ctx stops the loop between batches.
func (t *Trainer[B]) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: t.runID, BestEpoch: -1, Steps: t.step}
	log := t.logger.With("run_id", t.runID)

	if t.opts.SkipTraining {
		res, loss, err := t.Evaluate(ctx, t.val)
		if err != nil {
			return sum, err
		}
		log.Info("evaluation", append([]any{"loss", loss}, res.Attrs()...)...)
		sum.Last = res
		sum.BestF1 = res.F1
		return sum, nil
	}

	if t.opts.SaveCheckpoints {
		if err := os.MkdirAll(t.opts.OutputDir, 0o750); err != nil {
			return sum, fmt.Errorf("trainer: %w", err)
		}
	}

	log.Info("scheduled epochs", "start", t.startEpoch, "end", t.opts.Epochs)
	sinceImproved := 0
	for epoch := t.startEpoch; epoch < t.opts.Epochs; epoch++ {
		if t.scheduler != nil {
			t.scheduler.Step(epoch)
		}

		start := time.Now()
		trainLoss, err := t.trainEpoch(ctx, epoch, log)
		if err != nil {
			return sum, err
		}
		sum.EpochsRun++
		sum.Steps = t.step
		log.Info("epoch trained",
			"epoch", epoch,
			"loss", trainLoss,
			"lr", t.optimizer.GetLR(),
			"elapsed", time.Since(start).Round(time.Millisecond),
		)

		improved := false
		if !t.opts.SkipValidation {
			res, valLoss, err := t.Evaluate(ctx, t.val)
			if err != nil {
				return sum, err
			}
			sum.Last = res
			log.Info("validation", append([]any{"epoch", epoch, "loss", valLoss}, res.Attrs()...)...)

			if res.F1 > t.best {
				t.best = res.F1
				sum.BestEpoch = epoch
				improved = true
				sinceImproved = 0
			} else {
				sinceImproved++
			}
		}
		sum.BestF1 = t.best

		if t.opts.SaveCheckpoints {
			if err := t.save(filepath.Join(t.opts.OutputDir, CheckpointName(epoch)), epoch); err != nil {
				return sum, err
			}
			if improved {
				if err := t.save(filepath.Join(t.opts.OutputDir, BestCheckpoint), epoch); err != nil {
					return sum, err
				}
				log.Info("new best model", "epoch", epoch, "f1", t.best)
			}
		}

		if t.opts.EarlyStoppingPatience > 0 && sinceImproved >= t.opts.EarlyStoppingPatience {
			log.Info("early stopping", "epoch", epoch, "patience", t.opts.EarlyStoppingPatience)
			sum.StoppedEarly = true
			break
		}
	}
	if math.IsInf(sum.BestF1, -1) {
		sum.BestF1 = 0
	}
	return sum, nil
}

func (t *Trainer[B]) trainEpoch(ctx context.Context, epoch int, log *slog.Logger) (float64, error) {
	t.head.Train(true)
	t.optimizer.ZeroGrad()

	batches := t.train.Epoch(epoch)
	accum := t.opts.GradientAccumulationSteps
	var lossSum float64
	pending := 0
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		out, err := t.forward(ctx, b)
		if err != nil {
			return 0, fmt.Errorf("epoch %d batch %d: %w", epoch, i, err)
		}
		if err := t.head.Backward(out); err != nil {
			return 0, err
		}
		pending++
		loss := float64(out.Loss.Item())
		lossSum += loss

		if pending == accum || i == len(batches)-1 {
			scaleGrads(t.head.Parameters(), 1/float32(pending))
			t.optimizer.Step()
			t.optimizer.ZeroGrad()
			t.step++
			pending = 0
		}

		if (i+1)%t.opts.LogInterval == 0 {
			log.Info("train",
				"epoch", epoch,
				"batch", fmt.Sprintf("%d/%d", i+1, len(batches)),
				"loss", loss,
				"lr", t.optimizer.GetLR(),
				"step", t.step,
			)
		}
	}
	if len(batches) == 0 {
		return 0, nil
	}
	return lossSum / float64(len(batches)), nil
}

// Evaluate scores the head on every batch of loader in eval mode and returns the metrics
// and the mean loss.
func (t *Trainer[B]) Evaluate(ctx context.Context, loader *dataset.Loader) (metrics.Result, float64, error) {
	t.head.Train(false)
	defer t.head.Train(true)

	acc := metrics.NewAccumulator(t.head.NumLabels())
	var lossSum float64
	batches := loader.Epoch(0)
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return metrics.Result{}, 0, err
		}
		out, err := t.forward(ctx, b)
		if err != nil {
			return metrics.Result{}, 0, fmt.Errorf("eval batch %d: %w", i, err)
		}
		lossSum += float64(out.Loss.Item())
		if err := acc.Add(out.Probabilities().Data(), b.Labels); err != nil {
			return metrics.Result{}, 0, err
		}
	}
	if len(batches) == 0 {
		return metrics.Result{Threshold: t.opts.Threshold}, 0, nil
	}
	res, err := acc.Result(t.opts.Threshold)
	return res, lossSum / float64(len(batches)), err
}

func (t *Trainer[B]) forward(ctx context.Context, b dataset.Batch) (*head.Output[B], error) {
	if b.Labels == nil {
		return nil, ErrUnlabeledBatch
	}
	embs, err := t.backbone.Embed(ctx, b.IDs)
	if err != nil {
		return nil, err
	}
	labels, err := tensor.FromSlice(b.Labels, tensor.Shape{b.Size(), b.NumLabels}, t.backend)
	if err != nil {
		return nil, err
	}
	return t.head.Compute(embs, b.Lengths, labels)
}

func (t *Trainer[B]) save(path string, epoch int) error {
	meta := map[string]string{
		"num_labels": strconv.Itoa(t.head.NumLabels()),
		"embed_dim":  strconv.Itoa(t.head.EmbedDim()),
		"pool_mode":  t.head.Strategy().String(),
		"backbone":   t.backbone.Model().Name,
		"repr_layer": strconv.Itoa(t.backbone.ReprLayer()),
	}
	for k, v := range t.opts.Metadata {
		meta[k] = v
	}
	ckpt := &nn.Checkpoint{
		Model:      t.head,
		Optimizer:  t.optimizer,
		Epoch:      epoch,
		Step:       t.step,
		BestMetric: t.best,
		RunID:      t.runID,
		Metadata:   meta,
		CreatedAt:  time.Now(),
	}
	if math.IsInf(ckpt.BestMetric, -1) {
		ckpt.BestMetric = 0
	}
	return ckpt.Save(path)
}

func scaleGrads[B tensor.Backend](params []*nn.Parameter[B], s float32) {
	if s == 1 {
		return
	}
	for _, p := range params {
		if g := p.Grad(); g != nil {
			data := g.Data()
			for i := range data {
				data[i] *= s
			}
		}
	}
}
