package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/born-ml/deepfold/internal/config"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/optim"
	"github.com/born-ml/deepfold/internal/trainer"
)

// ArgsFile is the resolved config written into every run directory.
const ArgsFile = "args.yaml"

// Checkpoint metadata keys written by the CLI on top of the trainer's own.
const (
	metaLabels    = "labels"
	metaNamespace = "namespace"
)

// NewTrainCommand returns the train command.
func NewTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classification head",
		Long: `
Trains the head on train_file_name, validating on val_file_name after every epoch.
Checkpoints, args.yaml and summary.log are written to output_dir/<model>_<namespace>_<backbone>.
	`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTraining(cmd, false)
		},
	}
	bindFlags(cmd.Flags(), config.Default())
	return cmd
}

// NewEvaluateCommand returns the evaluate command. It runs one validation pass with the
// head restored from --resume.
func NewEvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a checkpoint on the validation set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTraining(cmd, true)
		},
	}
	bindFlags(cmd.Flags(), config.Default())
	return cmd
}

func runTraining(cmd *cobra.Command, evaluate bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if evaluate {
		cfg.Evaluate = true
		cfg.TrainingOnly = false
		if cfg.Resume == "" {
			return fmt.Errorf("%w: evaluate needs a checkpoint (--resume)", config.ErrInvalid)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runDir := cfg.RunDir()
	logger, closer, err := newLogger(cmd.ErrOrStderr(), runDir)
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()
	if err := cfg.Dump(filepath.Join(runDir, ArgsFile)); err != nil {
		return err
	}
	logger = logger.With("experiment", cfg.Experiment, "task", cfg.TaskName())

	anns, err := dataset.ReadAnnotations(cfg.DataFile(cfg.AnnotationsFile), cfg.Namespace)
	if err != nil {
		return err
	}
	labels := dataset.NewLabelMap(anns)
	if cfg.Resume != "" {
		// Keep the label columns and pooling of the checkpoint being resumed.
		meta, err := nn.ReadCheckpointMetadata(cfg.Resume)
		if err != nil {
			return err
		}
		if s, ok := meta[metaLabels]; ok {
			labels = dataset.ParseLabelMap(s)
		}
		if err := applyCheckpointMeta(cfg, meta); err != nil {
			return err
		}
	}
	if labels.Len() == 0 {
		return errors.New("no GO terms found in the annotations")
	}

	p, err := openPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close(logger)

	var train, val *dataset.Loader
	if !cfg.Evaluate {
		if train, err = p.loader(cfg.DataFile(cfg.TrainFileName), anns, labels, cfg, true, false, logger); err != nil {
			return err
		}
	}
	if !cfg.TrainingOnly {
		if val, err = p.loader(cfg.DataFile(cfg.ValFileName), anns, labels, cfg, false, false, logger); err != nil {
			return err
		}
	}

	h, err := head.New(head.Config{
		EmbedDim:  p.backbone.Model().EmbedDim,
		NumLabels: labels.Len(),
		Dropout:   cfg.DropoutRatio,
		Strategy:  cfg.PoolMode,
		Seed:      cfg.Seed,
		Parallel:  p.par,
	}, p.backend)
	if err != nil {
		return err
	}

	optimizer, err := optim.New(h.Parameters(), optim.Config{
		Name:        cfg.Optimizer,
		LR:          cfg.LR,
		Momentum:    cfg.Momentum,
		WeightDecay: cfg.WeightDecay,
		NoDecay:     cfg.NoDecay,
	}, p.backend)
	if err != nil {
		return err
	}
	scheduler, err := optim.NewSchedule(optimizer, optim.ScheduleConfig{
		Name:         cfg.LRSchedule,
		BaseLR:       cfg.LR,
		EndLR:        cfg.EndLR,
		WarmupEpochs: cfg.Warmup,
		TotalEpochs:  cfg.Epochs,
	})
	if err != nil {
		return err
	}

	tr, err := trainer.New(h, p.backbone, optimizer, scheduler, train, val, trainer.Options{
		Epochs:                    cfg.Epochs,
		StartEpoch:                cfg.StartEpoch,
		LogInterval:               cfg.LogInterval,
		GradientAccumulationSteps: cfg.GradientAccumulationSteps,
		EarlyStoppingPatience:     cfg.EarlyStoppingPatience,
		SkipTraining:              cfg.Evaluate,
		SkipValidation:            cfg.TrainingOnly,
		SaveCheckpoints:           cfg.SaveCheckpoints,
		OutputDir:                 runDir,
		Threshold:                 cfg.Threshold,
		Metadata: map[string]string{
			metaLabels:    labels.String(),
			metaNamespace: cfg.Namespace,
		},
	}, logger, p.backend)
	if err != nil {
		return err
	}
	if cfg.Resume != "" {
		if err := tr.Resume(cfg.Resume); err != nil {
			return err
		}
	}

	logger.Info("experiment started",
		"run_id", tr.RunID(),
		"labels", labels.Len(),
		"pool_mode", cfg.PoolMode,
		"optimizer", cfg.Optimizer,
		"lr_schedule", cfg.LRSchedule,
	)
	sum, err := tr.Run(cmd.Context())
	if err != nil {
		return err
	}

	logger.Info("experiment ended",
		append([]any{
			"run_id", sum.RunID,
			"epochs", sum.EpochsRun,
			"steps", sum.Steps,
			"best_f1", sum.BestF1,
			"best_epoch", sum.BestEpoch,
			"stopped_early", sum.StoppedEarly,
		}, sum.Last.Attrs()...)...,
	)
	return nil
}

// applyCheckpointMeta makes cfg agree with the head stored in a checkpoint.
func applyCheckpointMeta(cfg *config.Config, meta map[string]string) error {
	if v, ok := meta["pool_mode"]; ok {
		if err := cfg.PoolMode.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("checkpoint pool_mode: %w", err)
		}
	}
	if v, ok := meta["backbone"]; ok {
		cfg.Backbone = v
	}
	if v, ok := meta["repr_layer"]; ok {
		layer, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("checkpoint repr_layer %q: %w", v, err)
		}
		cfg.ReprLayer = layer
	}
	return nil
}
