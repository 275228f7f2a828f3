// Package backbone describes the protein language models whose per-residue embeddings feed
// the classification head, and serves those embeddings to the trainer.
//
// Running a backbone is out of scope: embeddings are extracted once and stored, and the
// Precomputed backbone reads them back. What this package owns is identifier validation,
// representation-layer selection and the freezing policy.
package backbone

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultModel is used when a requested identifier is not in the registry.
const DefaultModel = "esm1b_t33_650M_UR50S"

// ErrUnrecognizedBackbone is wrapped by Resolution.Warning when a fallback happened.
var ErrUnrecognizedBackbone = errors.New("unrecognized backbone")

// ErrLayerOutOfRange reports a representation layer outside [-(layers+1), layers].
var ErrLayerOutOfRange = errors.New("representation layer out of range")

// Model describes one supported backbone.
type Model struct {
	Name     string
	Layers   int  // Number of transformer layers
	EmbedDim int  // Width of each per-token embedding
	MSA      bool // Takes multiple sequence alignments instead of single sequences
}

var registry = map[string]Model{}

func register(name string, layers, dim int) {
	registry[name] = Model{Name: name, Layers: layers, EmbedDim: dim, MSA: strings.Contains(name, "msa")}
}

func init() {
	register("esm1_t34_670M_UR50S", 34, 1280)
	register("esm1_t34_670M_UR50D", 34, 1280)
	register("esm1_t34_670M_UR100", 34, 1280)
	register("esm1_t12_85M_UR50S", 12, 768)
	register("esm1_t6_43M_UR50S", 6, 768)
	register("esm1b_t33_650M_UR50S", 33, 1280)
	register("esm_msa1_t12_100M_UR50S", 12, 768)
	register("esm_msa1b_t12_100M_UR50S", 12, 768)
	for i := 1; i <= 5; i++ {
		register(fmt.Sprintf("esm1v_t33_650M_UR90S_%d", i), 33, 1280)
	}
	register("esm2_t6_8M_UR50D", 6, 320)
	register("esm2_t12_35M_UR50D", 12, 480)
	register("esm2_t30_150M_UR50D", 30, 640)
	register("esm2_t33_650M_UR50D", 33, 1280)
	register("esm2_t36_3B_UR50D", 36, 2560)
	register("esm2_t48_15B_UR50D", 48, 5120)
}

// Lookup returns the registered model with the given name.
func Lookup(name string) (Model, bool) {
	m, ok := registry[name]
	return m, ok
}

// Models returns every registered model, sorted by name.
func Models() []Model {
	out := make([]Model, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Model     Model  // The model to use
	Requested string // The identifier that was asked for
	Fallback  bool   // Requested was not recognized and DefaultModel was substituted
}

// Warning returns a non-nil error wrapping ErrUnrecognizedBackbone when Resolve fell back
// to DefaultModel. It is informational: the resolution is still usable.
func (r Resolution) Warning() error {
	if !r.Fallback {
		return nil
	}
	return fmt.Errorf("%w: %q, using %q", ErrUnrecognizedBackbone, r.Requested, r.Model.Name)
}

// Resolve maps id onto the registry, falling back to DefaultModel for unknown ids.
func Resolve(id string) Resolution {
	if m, ok := registry[id]; ok {
		return Resolution{Model: m, Requested: id}
	}
	return Resolution{Model: registry[DefaultModel], Requested: id, Fallback: true}
}

// ReprLayer normalizes a representation layer index. Negative indices count from the end,
// so -1 selects the last layer: (layer + n + 1) mod (n + 1).
func (m Model) ReprLayer(layer int) (int, error) {
	n := m.Layers
	if layer < -(n+1) || layer > n {
		return 0, fmt.Errorf("%w: %d for %s with %d layers", ErrLayerOutOfRange, layer, m.Name, n)
	}
	return (layer + n + 1) % (n + 1), nil
}
