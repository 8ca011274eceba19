package onnx

import (
	"errors"
	"fmt"
)

// Sentinel errors for the inference failure modes shared by all model
// stages. Stages wrap them with context via fmt.Errorf("%w: …", …) so
// callers classify with errors.Is.
var (
	// ErrShapeMismatch reports a tensor whose name, dtype, or shape does
	// not match the graph's declared signature.
	ErrShapeMismatch = errors.New("tensor shape mismatch")

	// ErrAlignmentMismatch reports subword embeddings that do not cover
	// the phoneme sequence exactly.
	ErrAlignmentMismatch = errors.New("subword/phoneme alignment mismatch")

	// ErrLengthMismatch reports a model output whose length differs from
	// the length implied by its inputs.
	ErrLengthMismatch = errors.New("output length mismatch")
)

// BackendError wraps a failure inside the execution backend itself
// (session creation or graph execution).
type BackendError struct {
	Graph string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend failure in %q: %v", e.Graph, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
