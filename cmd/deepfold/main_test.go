package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/deepfold/internal/config"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/tensor"
	"github.com/born-ml/deepfold/internal/trainer"
)

const (
	testBackbone = "esm2_t6_8M_UR50D"
	testDim      = 320
	termEven     = "GO:0003674"
	termOdd      = "GO:0005488"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFixture creates a dataset of 12 proteins whose embeddings separate the two GO
// terms on the first dimension.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	var fasta, anns strings.Builder
	embs := make(map[string]*tensor.RawTensor)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("P%02d", i)
		seq := strings.Repeat("MKV", 1+i%3)
		fmt.Fprintf(&fasta, ">%s protein %d\n%s\n", id, i, seq)

		term, sign := termEven, float32(1)
		if i%2 == 1 {
			term, sign = termOdd, -1
		}
		fmt.Fprintf(&anns, "%s\tmfo\t%s\n", id, term)

		raw, err := tensor.NewRaw(tensor.Shape{len(seq) + 2, testDim}, tensor.Float32, tensor.CPU)
		require.NoError(t, err)
		data := raw.AsFloat32()
		for r := 0; r < len(seq)+2; r++ {
			data[r*testDim] = sign
			data[r*testDim+1] = 0.1 * float32(r)
		}
		embs[id] = raw
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.fasta"), []byte(fasta.String()), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "val.fasta"), []byte(fasta.String()), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "annotations.tsv"), []byte(anns.String()), 0o600))
	require.NoError(t, dataset.WriteStore(filepath.Join(dir, "embeddings.safetensors"), testBackbone, 6, embs))
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "deepfold "+version+"\n", out)
}

func TestOverlayFlags_FlagsWinOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lr: 0.5\nepochs: 3\npool_mode: mean\n"), 0o600))

	cmd := NewTrainCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--lr", "0.01", "--no-checkpoints", "--pool-mode", "cls", "-b", "8"}))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, overlayFlags(cmd.Flags(), cfg))

	assert.InDelta(t, 0.01, cfg.LR, 1e-9)
	assert.Equal(t, 3, cfg.Epochs, "unset flags keep the file value")
	assert.Equal(t, head.Cls, cfg.PoolMode)
	assert.False(t, cfg.SaveCheckpoints)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.Equal(t, config.Default().Optimizer, cfg.Optimizer)
}

func TestOverlayFlags_InvalidPoolMode(t *testing.T) {
	cmd := NewTrainCommand()
	err := cmd.Flags().Parse([]string{"--pool-mode", "max"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool-mode")
}

func TestTrainRejectsUnimplementedPoolMode(t *testing.T) {
	dir := writeFixture(t)
	_, _, err := execute(t, "train",
		"--data-path", dir,
		"--output-dir", t.TempDir(),
		"--backbone", testBackbone,
		"--pool-mode", "pooler",
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, head.ErrInvalidPoolMode)
}

func TestEvaluateRequiresCheckpoint(t *testing.T) {
	_, _, err := execute(t, "evaluate", "--output-dir", t.TempDir())
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestTrainEvaluatePredict(t *testing.T) {
	dir := writeFixture(t)
	outDir := t.TempDir()

	_, stderr, err := execute(t, "train",
		"--data-path", dir,
		"--output-dir", outDir,
		"--backbone", testBackbone,
		"--namespace", "mfo",
		"--epochs", "30",
		"-b", "4",
		"-j", "2",
		"--optimizer", "adamw",
		"--lr", "0.05",
		"--lr-schedule", "cosine",
		"--end-lr", "0.001",
		"--weight-decay", "0",
		"--pool-mode", "mean",
	)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "experiment ended")

	runDir := filepath.Join(outDir, "esm_head_mfo_"+testBackbone)
	for _, name := range []string{ArgsFile, SummaryLog, trainer.BestCheckpoint, trainer.CheckpointName(29)} {
		assert.FileExists(t, filepath.Join(runDir, name))
	}

	best := filepath.Join(runDir, trainer.BestCheckpoint)
	meta, err := nn.ReadCheckpointMetadata(best)
	require.NoError(t, err)
	assert.Equal(t, termEven+","+termOdd, meta[metaLabels])
	assert.Equal(t, "mfo", meta[metaNamespace])
	assert.Equal(t, "mean", meta["pool_mode"])
	assert.Equal(t, "6", meta["repr_layer"])
	f1, err := strconv.ParseFloat(meta["best_metric"], 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f1, 0.9)

	t.Run("evaluate", func(t *testing.T) {
		_, stderr, err := execute(t, "evaluate",
			"--data-path", dir,
			"--output-dir", t.TempDir(),
			"--namespace", "mfo",
			"--resume", best,
		)
		require.NoError(t, err, stderr)
		assert.Contains(t, stderr, "evaluation")
	})

	t.Run("predict", func(t *testing.T) {
		preds := filepath.Join(t.TempDir(), "preds.tsv")
		_, stderr, err := execute(t, "predict",
			"--data-path", dir,
			"--checkpoint", best,
			"--fasta", filepath.Join(dir, "val.fasta"),
			"--output", preds,
			"--threshold", "0.5",
		)
		require.NoError(t, err, stderr)

		data, err := os.ReadFile(preds)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 12)
		for _, line := range lines {
			fields := strings.Split(line, "\t")
			require.Len(t, fields, 3)
			i, err := strconv.Atoi(strings.TrimPrefix(fields[0], "P"))
			require.NoError(t, err)
			want := termEven
			if i%2 == 1 {
				want = termOdd
			}
			assert.Equal(t, want, fields[1], line)
		}
	})
}
