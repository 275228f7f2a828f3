package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/born-ml/deepfold/internal/config"
	"github.com/born-ml/deepfold/internal/dataset"
	"github.com/born-ml/deepfold/internal/head"
	"github.com/born-ml/deepfold/internal/nn"
	"github.com/born-ml/deepfold/internal/trainer"
)

var predictArgs struct {
	checkpoint string
	fasta      string
	output     string
}

// NewPredictCommand returns the predict command.
func NewPredictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict GO terms for the proteins of a FASTA file",
		Long: `
Loads a checkpoint written by train and writes one "id<TAB>term<TAB>score" line for
every term scoring at or above --threshold. Embeddings are read from embeddings_file.
	`,
		Args: cobra.NoArgs,
		RunE: runPredict,
	}

	cmd.Flags().
		StringVarP(&predictArgs.checkpoint, "checkpoint", "m", "", "checkpoint written by train")
	cmd.Flags().
		StringVarP(&predictArgs.fasta, "fasta", "f", "", "FASTA file of proteins to annotate")
	cmd.Flags().
		StringVarP(&predictArgs.output, "output", "o", "", "output TSV (default stdout)")
	_ = cmd.MarkFlagRequired("checkpoint")
	_ = cmd.MarkFlagRequired("fasta")
	bindFlags(cmd.Flags(), config.Default())
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cmd.ErrOrStderr(), "")
	if err != nil {
		return err
	}
	defer func() {
		_ = closer.Close()
	}()

	meta, err := nn.ReadCheckpointMetadata(predictArgs.checkpoint)
	if err != nil {
		return err
	}
	labels := dataset.ParseLabelMap(meta[metaLabels])
	if labels.Len() == 0 {
		return fmt.Errorf("%s: checkpoint has no %q metadata", predictArgs.checkpoint, metaLabels)
	}
	if err := applyCheckpointMeta(cfg, meta); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := openPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close(logger)

	dim, err := strconv.Atoi(meta["embed_dim"])
	if err != nil {
		return fmt.Errorf("checkpoint embed_dim %q: %w", meta["embed_dim"], err)
	}
	h, err := head.New(head.Config{
		EmbedDim:  dim,
		NumLabels: labels.Len(),
		Strategy:  cfg.PoolMode,
		Parallel:  p.par,
	}, p.backend)
	if err != nil {
		return err
	}
	ckpt, err := nn.LoadCheckpoint(predictArgs.checkpoint, h, nil)
	if err != nil {
		return err
	}
	logger.Info("checkpoint loaded",
		"path", predictArgs.checkpoint,
		"epoch", ckpt.Epoch,
		"best_f1", ckpt.BestMetric,
		"run_id", ckpt.RunID,
		"labels", labels.Len(),
	)

	loader, err := p.loader(predictArgs.fasta, nil, labels, cfg, false, true, logger)
	if err != nil {
		return err
	}
	preds, err := trainer.Predict(cmd.Context(), h, p.backbone, loader)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if predictArgs.output != "" {
		f, err := os.Create(predictArgs.output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		out = f
	}
	w := bufio.NewWriter(out)
	if err := trainer.WritePredictions(w, preds, labels, cfg.Threshold); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	logger.Info("predictions written", "proteins", len(preds), "threshold", cfg.Threshold)
	return nil
}
