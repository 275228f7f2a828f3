package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, head.Mean, cfg.PoolMode)
	assert.Equal(t, "esm1b_t33_650M_UR50S", cfg.Backbone)
	assert.Equal(t, -1, cfg.EarlyStoppingPatience)
	assert.True(t, cfg.SaveCheckpoints)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvDataPath, "")
	t.Setenv(EnvOutputDir, "")
	path := writeFile(t, "cfg.yaml", `
data_path: /data/proteins
namespace: mfo
optimizer: adamw
lr: 0.001
lr_schedule: exponential
pool_mode: cls
epochs: 10
batch_size: 32
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/proteins", cfg.DataPath)
	assert.Equal(t, "mfo", cfg.Namespace)
	assert.Equal(t, "adamw", cfg.Optimizer)
	assert.InDelta(t, 0.001, cfg.LR, 1e-9)
	assert.Equal(t, head.Cls, cfg.PoolMode)
	assert.Equal(t, 32, cfg.BatchSize)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1024, cfg.MaxLen)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/proteins/train.fasta", cfg.DataFile(cfg.TrainFileName))
	assert.Equal(t, "/abs/val.fasta", cfg.DataFile("/abs/val.fasta"))
	assert.Equal(t, filepath.Join("./work_dirs", "esm_head_mfo_esm1b_t33_650M_UR50S"), cfg.RunDir())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "cfg.yaml", "no_such_key: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "cfg.yaml", "pool_mode: max\n"))
	assert.ErrorIs(t, err, head.ErrInvalidPoolMode)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default().Epochs, cfg.Epochs)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDataPath, "/env/data")
	t.Setenv(EnvOutputDir, "/env/out")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/data", cfg.DataPath)
	assert.Equal(t, "/env/out", cfg.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"pooler not implemented", func(c *Config) { c.PoolMode = head.Pooler }, head.ErrInvalidPoolMode},
		{"unknown optimizer", func(c *Config) { c.Optimizer = "lamb" }, optim.ErrUnknownOptimizer},
		{"unknown schedule", func(c *Config) { c.LRSchedule = "poly" }, optim.ErrUnknownSchedule},
		{"batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalid},
		{"start epoch", func(c *Config) { c.StartEpoch = 100 }, ErrInvalid},
		{"dropout", func(c *Config) { c.DropoutRatio = 1 }, ErrInvalid},
		{"namespace", func(c *Config) { c.Namespace = "xyz" }, ErrInvalid},
		{"accumulation", func(c *Config) { c.GradientAccumulationSteps = 0 }, ErrInvalid},
		{"exclusive modes", func(c *Config) { c.Evaluate, c.TrainingOnly = true, true }, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestDump(t *testing.T) {
	cfg := Default()
	cfg.PoolMode = head.Cls
	cfg.Namespace = "bpo"

	path := filepath.Join(t.TempDir(), "args.yaml")
	require.NoError(t, cfg.Dump(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pool_mode: cls")
	assert.Contains(t, string(data), "namespace: bpo")

	t.Setenv(EnvDataPath, "")
	t.Setenv(EnvOutputDir, "")
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
