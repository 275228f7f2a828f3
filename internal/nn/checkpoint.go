package nn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/born-ml/deepfold/internal/serialization"
	"github.com/born-ml/deepfold/internal/tensor"
)

// OptimizerState represents an optimizer that can save/load its state.
//
// Declared here so checkpoints can serialize optimizer state without importing optim.
type OptimizerState interface {
	Stateful

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Tensor name prefixes inside a checkpoint file.
const (
	modelPrefix     = "model."
	optimizerPrefix = "optimizer."
)

// Checkpoint is a training state snapshot stored as a single SafeTensors file:
// model tensors under "model.", optimizer tensors under "optimizer.", and scalar
// training state in the metadata map.
type Checkpoint struct {
	Model      Stateful          // The classification head
	Optimizer  OptimizerState    // Optional; nil for inference-only checkpoints
	Epoch      int               // Last completed epoch
	Step       int64             // Optimizer steps taken
	BestMetric float64           // Best validation metric so far
	RunID      string            // Identifier of the run that produced the checkpoint
	Metadata   map[string]string // Additional training metadata
	CreatedAt  time.Time
}

// Save writes the checkpoint to path.
func (c *Checkpoint) Save(path string) error {
	if c.Model == nil {
		return fmt.Errorf("checkpoint: model is nil")
	}

	modelState := c.Model.StateDict()
	tensors := make(map[string]*tensor.RawTensor, len(modelState))
	for name, raw := range modelState {
		tensors[modelPrefix+name] = raw
	}
	meta := map[string]string{
		"epoch":       strconv.Itoa(c.Epoch),
		"step":        strconv.FormatInt(c.Step, 10),
		"best_metric": strconv.FormatFloat(c.BestMetric, 'g', -1, 64),
		"run_id":      c.RunID,
		"created_at":  c.CreatedAt.UTC().Format(time.RFC3339),
		"checksum":    serialization.ChecksumTensors(modelState),
	}
	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			tensors[optimizerPrefix+name] = raw
		}
		meta["lr"] = strconv.FormatFloat(float64(c.Optimizer.GetLR()), 'g', -1, 32)
	}
	for k, v := range c.Metadata {
		if _, reserved := meta[k]; !reserved {
			meta[k] = v
		}
	}

	if err := serialization.WriteSafeTensors(path, tensors, meta); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores model (and optimizer, if non-nil and present in the file) from
// path. The model tensors are verified against the stored checksum before loading.
func LoadCheckpoint(path string, model Stateful, optimizer OptimizerState) (*Checkpoint, error) {
	r, err := serialization.OpenSafeTensors(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}

	modelState := make(map[string]*tensor.RawTensor)
	optimState := make(map[string]*tensor.RawTensor)
	for name, raw := range all {
		switch {
		case strings.HasPrefix(name, modelPrefix):
			modelState[strings.TrimPrefix(name, modelPrefix)] = raw
		case strings.HasPrefix(name, optimizerPrefix):
			optimState[strings.TrimPrefix(name, optimizerPrefix)] = raw
		}
	}

	meta := r.Metadata()
	if stored, ok := meta["checksum"]; ok {
		if err := serialization.ValidateChecksum(serialization.ChecksumTensors(modelState), stored); err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", path, err)
		}
	}

	if err := model.LoadStateDict(modelState); err != nil {
		return nil, fmt.Errorf("checkpoint: load model: %w", err)
	}
	if optimizer != nil && len(optimState) > 0 {
		if err := optimizer.LoadStateDict(optimState); err != nil {
			return nil, fmt.Errorf("checkpoint: load optimizer: %w", err)
		}
	}

	ckpt := &Checkpoint{
		Model:     model,
		Optimizer: optimizer,
		RunID:     meta["run_id"],
		Metadata:  meta,
	}
	if ckpt.Epoch, err = strconv.Atoi(meta["epoch"]); err != nil {
		return nil, fmt.Errorf("checkpoint: bad epoch %q: %w", meta["epoch"], err)
	}
	if ckpt.Step, err = strconv.ParseInt(meta["step"], 10, 64); err != nil {
		return nil, fmt.Errorf("checkpoint: bad step %q: %w", meta["step"], err)
	}
	if ckpt.BestMetric, err = strconv.ParseFloat(meta["best_metric"], 64); err != nil {
		return nil, fmt.Errorf("checkpoint: bad best_metric %q: %w", meta["best_metric"], err)
	}
	if ts, err := time.Parse(time.RFC3339, meta["created_at"]); err == nil {
		ckpt.CreatedAt = ts
	}
	return ckpt, nil
}

// ReadCheckpointMetadata returns the metadata of a checkpoint without loading tensors.
func ReadCheckpointMetadata(path string) (map[string]string, error) {
	r, err := serialization.OpenSafeTensors(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()
	return r.Metadata(), nil
}
