package main

import (
	"strconv"

	"github.com/spf13/pflag"

	"github.com/born-ml/deepfold/internal/config"
	"github.com/born-ml/deepfold/internal/head"
)

// bindFlags registers the config flags on fs, pointing at the fields of c. The flag
// names mirror the YAML keys with dashes.
func bindFlags(fs *pflag.FlagSet, c *config.Config) {
	// Data
	fs.StringVar(&c.DataPath, "data-path", c.DataPath, "directory holding the dataset files")
	fs.StringVar(&c.TrainFileName, "train-file-name", c.TrainFileName, "training FASTA file")
	fs.StringVar(&c.ValFileName, "val-file-name", c.ValFileName, "validation FASTA file")
	fs.StringVar(&c.AnnotationsFile, "annotations-file", c.AnnotationsFile, "GO annotation TSV")
	fs.StringVar(&c.EmbeddingsFile, "embeddings-file", c.EmbeddingsFile, "precomputed embedding store")
	fs.StringVar(&c.Namespace, "namespace", c.Namespace, "GO namespace: cco, mfo or bpo (empty for all)")
	fs.IntVar(&c.CacheSizeMB, "cache-size-mb", c.CacheSizeMB, "embedding cache size in MB (0 disables)")

	// Model
	fs.StringVar(&c.Model, "model", c.Model, "model name used in the run directory")
	fs.StringVar(&c.Backbone, "backbone", c.Backbone, "ESM backbone the embeddings come from")
	fs.IntVar(&c.ReprLayer, "repr-layer", c.ReprLayer, "backbone layer (negative counts from the end)")
	fs.IntVar(&c.MaxLen, "max-len", c.MaxLen, "maximum tokens per sequence including cls and eos")
	fs.Float32Var(&c.DropoutRatio, "dropout-ratio", c.DropoutRatio, "dropout before the classifier")
	fs.Var((*strategyValue)(&c.PoolMode), "pool-mode", "pooling strategy: cls or mean")
	fs.BoolVar(&c.FreezeBackbone, "freeze-backbone", c.FreezeBackbone, "freeze the backbone")
	fs.StringVar(&c.Resume, "resume", c.Resume, "checkpoint to resume from")

	// Optimization
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "number of total epochs to run")
	fs.IntVar(&c.StartEpoch, "start-epoch", c.StartEpoch, "manual epoch number (useful on restarts)")
	fs.IntVarP(&c.Workers, "workers", "j", c.Workers, "number of parallel workers")
	fs.IntVarP(&c.BatchSize, "batch-size", "b", c.BatchSize, "mini-batch size")
	fs.Float32Var(&c.LR, "lr", c.LR, "initial learning rate")
	fs.Float32Var(&c.EndLR, "end-lr", c.EndLR, "final learning rate for linear and cosine schedules")
	fs.StringVar(&c.LRSchedule, "lr-schedule", c.LRSchedule, "schedule: step, linear, cosine or exponential")
	fs.IntVar(&c.Warmup, "warmup", c.Warmup, "warmup epochs")
	fs.StringVar(&c.Optimizer, "optimizer", c.Optimizer, "optimizer: sgd, rmsprop or adamw")
	fs.Float32Var(&c.Momentum, "momentum", c.Momentum, "momentum")
	fs.Float32Var(&c.WeightDecay, "weight-decay", c.WeightDecay, "weight decay")
	fs.IntVar(&c.EarlyStoppingPatience, "early-stopping-patience", c.EarlyStoppingPatience, "epochs without improvement before stopping (-1 disables)")
	fs.IntVar(&c.GradientAccumulationSteps, "gradient-accumulation-steps", c.GradientAccumulationSteps, "batches per optimizer step")

	// Run control
	fs.BoolVar(&c.TrainingOnly, "training-only", c.TrainingOnly, "skip validation")
	fs.Var((*invertedBool)(&c.SaveCheckpoints), "no-checkpoints", "do not write checkpoints")
	fs.Lookup("no-checkpoints").NoOptDefVal = "true"
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for initialization and shuffling")
	fs.IntVar(&c.LogInterval, "log-interval", c.LogInterval, "log every N batches")
	fs.Float64Var(&c.Threshold, "threshold", c.Threshold, "decision threshold for metrics")
	fs.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "directory for run outputs")
	fs.StringVar(&c.Experiment, "experiment", c.Experiment, "experiment name")
}

// overlayFlags copies the flags set on the command line onto c, so that explicit flags
// win over the config file and the environment.
func overlayFlags(changed *pflag.FlagSet, c *config.Config) error {
	target := pflag.NewFlagSet("config", pflag.ContinueOnError)
	bindFlags(target, c)

	var err error
	changed.Visit(func(f *pflag.Flag) {
		t := target.Lookup(f.Name)
		if t == nil || err != nil {
			return
		}
		err = t.Value.Set(f.Value.String())
	})
	return err
}

// strategyValue adapts head.Strategy to pflag.Value.
type strategyValue head.Strategy

func (s *strategyValue) String() string { return head.Strategy(*s).String() }

func (s *strategyValue) Set(v string) error {
	return (*head.Strategy)(s).UnmarshalText([]byte(v))
}

func (s *strategyValue) Type() string { return "strategy" }

// invertedBool is a bool flag that stores its negation.
type invertedBool bool

func (b *invertedBool) String() string { return strconv.FormatBool(!bool(*b)) }

func (b *invertedBool) Set(v string) error {
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*b = invertedBool(!parsed)
	return nil
}

func (b *invertedBool) Type() string { return "bool" }
