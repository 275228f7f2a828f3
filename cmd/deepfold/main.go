// Package main provides the deepfold CLI: training, evaluation and prediction of a
// protein function classification head over precomputed ESM embeddings.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/born-ml/deepfold/internal/config"
)

const version = "v0.1.0-dev"

// SummaryLog is the log file written next to the checkpoints of a run.
const SummaryLog = "summary.log"

// RootArgs holds the flags shared by every command.
var RootArgs struct {
	configPath string
	verbose    bool
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
		} else {
			slog.Error("command failed", "err", err)
		}
		stop()
		os.Exit(1)
	}
}

// NewRootCommand returns the deepfold command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deepfold",
		Short: "Protein function prediction from ESM embeddings",
		Long: `
deepfold trains a pooling + linear classification head that predicts Gene Ontology
terms from precomputed protein language model embeddings.

Settings come from built-in defaults, then the YAML file given with --config, then
DEEPFOLD_* environment variables (a .env file is honoured), then command-line flags.
	`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().
		StringVarP(&RootArgs.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().
		BoolVarP(&RootArgs.verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(
		NewTrainCommand(),
		NewEvaluateCommand(),
		NewPredictCommand(),
		NewVersionCommand(),
	)
	return cmd
}

// NewVersionCommand returns the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deepfold %s\n", version)
		},
	}
}

// loadConfig resolves the configuration for cmd: defaults, config file, environment,
// then the flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(RootArgs.configPath)
	if err != nil {
		return nil, err
	}
	if err := overlayFlags(cmd.Flags(), cfg); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

// newLogger returns a text logger writing to stderr and, when dir is not empty, to
// dir/summary.log. The returned closer releases the log file.
func newLogger(stderr io.Writer, dir string) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if RootArgs.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if dir == "" {
		return slog.New(slog.NewTextHandler(stderr, opts)), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	//nolint:gosec // G304: path is built from the configured output directory
	f, err := os.OpenFile(filepath.Join(dir, SummaryLog), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open summary log: %w", err)
	}
	return slog.New(slog.NewTextHandler(io.MultiWriter(stderr, f), opts)), f, nil
}
