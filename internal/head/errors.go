package head

import "errors"

var (
	// ErrShapeMismatch reports inconsistent embeddings, lengths or labels.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidPoolMode reports an unknown or unimplemented pooling strategy.
	ErrInvalidPoolMode = errors.New("invalid pool mode")

	// ErrNoLabels is returned by Backward for an output computed without labels.
	ErrNoLabels = errors.New("output has no loss: computed without labels")
)
