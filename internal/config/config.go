// Package config holds the training configuration: defaults, a YAML file overlay,
// environment overrides and validation.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/deepfold/internal/backbone"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/optim"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDataPath  = "DEEPFOLD_DATA_PATH"
	EnvOutputDir = "DEEPFOLD_OUTPUT_DIR"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full training configuration. YAML keys match the command-line flags.
type Config struct {
	// Data
	DataPath        string `yaml:"data_path"`
	TrainFileName   string `yaml:"train_file_name"`
	ValFileName     string `yaml:"val_file_name"`
	AnnotationsFile string `yaml:"annotations_file"`
	EmbeddingsFile  string `yaml:"embeddings_file"`
	Namespace       string `yaml:"namespace"` // cco, mfo, bpo or empty for all
	CacheSizeMB     int    `yaml:"cache_size_mb"`

	// Model
	Model          string        `yaml:"model"`
	Backbone       string        `yaml:"backbone"`
	ReprLayer      int           `yaml:"repr_layer"`
	MaxLen         int           `yaml:"max_len"`
	DropoutRatio   float32       `yaml:"dropout_ratio"`
	PoolMode       head.Strategy `yaml:"pool_mode"`
	FreezeBackbone bool          `yaml:"freeze_backbone"`
	Resume         string        `yaml:"resume"`

	// Optimization
	Epochs                    int      `yaml:"epochs"`
	StartEpoch                int      `yaml:"start_epoch"`
	Workers                   int      `yaml:"workers"`
	BatchSize                 int      `yaml:"batch_size"`
	LR                        float32  `yaml:"lr"`
	EndLR                     float32  `yaml:"end_lr"`
	LRSchedule                string   `yaml:"lr_schedule"`
	Warmup                    int      `yaml:"warmup"`
	Optimizer                 string   `yaml:"optimizer"`
	Momentum                  float32  `yaml:"momentum"`
	WeightDecay               float32  `yaml:"weight_decay"`
	NoDecay                   []string `yaml:"no_decay"`
	EarlyStoppingPatience     int      `yaml:"early_stopping_patience"`
	GradientAccumulationSteps int      `yaml:"gradient_accumulation_steps"`

	// Run control
	Evaluate        bool    `yaml:"evaluate"`
	TrainingOnly    bool    `yaml:"training_only"`
	SaveCheckpoints bool    `yaml:"save_checkpoints"`
	Seed            int64   `yaml:"seed"`
	LogInterval     int     `yaml:"log_interval"`
	Threshold       float64 `yaml:"threshold"`
	OutputDir       string  `yaml:"output_dir"`
	Experiment      string  `yaml:"experiment"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		TrainFileName:   "train.fasta",
		ValFileName:     "val.fasta",
		AnnotationsFile: "annotations.tsv",
		EmbeddingsFile:  "embeddings.safetensors",
		CacheSizeMB:     512,

		Model:          "esm_head",
		Backbone:       backbone.DefaultModel,
		ReprLayer:      -1,
		MaxLen:         1024,
		PoolMode:       head.Mean,
		FreezeBackbone: true,

		Epochs:                    90,
		Workers:                   4,
		BatchSize:                 256,
		LR:                        0.1,
		EndLR:                     1e-8,
		LRSchedule:                "step",
		Optimizer:                 "sgd",
		Momentum:                  0.9,
		WeightDecay:               1e-4,
		NoDecay:                   []string{"bias", "gamma", "beta"},
		EarlyStoppingPatience:     -1,
		GradientAccumulationSteps: 1,

		SaveCheckpoints: true,
		Seed:            42,
		LogInterval:     10,
		Threshold:       0.2,
		OutputDir:       "./work_dirs",
		Experiment:      "protein-annotation",
	}
}

// Load returns the defaults overlaid with the YAML file at path (skipped when path is
// empty) and then with environment variables. A .env file in the working directory is
// loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		//nolint:gosec // G304: path is chosen by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

// ApplyEnv applies DEEPFOLD_DATA_PATH and DEEPFOLD_OUTPUT_DIR when set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDataPath)); v != "" {
		c.DataPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		c.OutputDir = v
	}
}

// Validate rejects values the trainer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Epochs >= 0, "epochs must be >= 0, got %d", c.Epochs)
	check(c.StartEpoch >= 0 && c.StartEpoch <= c.Epochs, "start_epoch must be in [0, epochs], got %d", c.StartEpoch)
	check(c.Workers >= 0, "workers must be >= 0, got %d", c.Workers)
	check(c.BatchSize > 0, "batch_size must be positive, got %d", c.BatchSize)
	check(c.LR > 0, "lr must be positive, got %v", c.LR)
	check(c.EndLR >= 0 && c.EndLR <= c.LR, "end_lr must be in [0, lr], got %v", c.EndLR)
	check(c.Warmup >= 0, "warmup must be >= 0, got %d", c.Warmup)
	check(c.Momentum >= 0 && c.Momentum < 1, "momentum must be in [0, 1), got %v", c.Momentum)
	check(c.WeightDecay >= 0, "weight_decay must be >= 0, got %v", c.WeightDecay)
	check(c.GradientAccumulationSteps >= 1, "gradient_accumulation_steps must be >= 1, got %d", c.GradientAccumulationSteps)
	check(c.LogInterval > 0, "log_interval must be positive, got %d", c.LogInterval)
	check(c.MaxLen >= 2, "max_len must be >= 2, got %d", c.MaxLen)
	check(c.DropoutRatio >= 0 && c.DropoutRatio < 1, "dropout_ratio must be in [0, 1), got %v", c.DropoutRatio)
	check(c.Threshold > 0 && c.Threshold < 1, "threshold must be in (0, 1), got %v", c.Threshold)
	check(c.CacheSizeMB >= 0, "cache_size_mb must be >= 0, got %d", c.CacheSizeMB)
	check(c.OutputDir != "", "output_dir must be set")
	check(!(c.Evaluate && c.TrainingOnly), "evaluate and training_only are mutually exclusive")

	if !c.PoolMode.Implemented() {
		errs = append(errs, fmt.Errorf("%w: pool_mode: %w: %s is not implemented", ErrInvalid, head.ErrInvalidPoolMode, c.PoolMode))
	}
	if err := dataset.ValidateNamespace(c.Namespace); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	switch strings.ToLower(c.Optimizer) {
	case "sgd", "rmsprop", "adamw":
	default:
		errs = append(errs, fmt.Errorf("%w: %w: %q", ErrInvalid, optim.ErrUnknownOptimizer, c.Optimizer))
	}
	switch strings.ToLower(c.LRSchedule) {
	case "step", "linear", "cosine", "exponential":
	default:
		errs = append(errs, fmt.Errorf("%w: %w: %q", ErrInvalid, optim.ErrUnknownSchedule, c.LRSchedule))
	}
	return errors.Join(errs...)
}

// TaskName names the run directory: <model>_<namespace>_<backbone>.
func (c *Config) TaskName() string {
	ns := c.Namespace
	if ns == "" {
		ns = "all"
	}
	return fmt.Sprintf("%s_%s_%s", c.Model, ns, c.Backbone)
}

// RunDir is output_dir/TaskName.
func (c *Config) RunDir() string {
	return filepath.Join(c.OutputDir, c.TaskName())
}

// DataFile resolves name against data_path.
func (c *Config) DataFile(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataPath, name)
}

// Dump writes the resolved configuration as YAML.
func (c *Config) Dump(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
