// Package style resolves speaker/style selections into the embedding
// vector conditioning the acoustic model. Pure float math, no model
// execution.
package style

import (
	"errors"
	"fmt"
)

// ErrEmptySelection reports a resolve call with no styles requested.
var ErrEmptySelection = errors.New("style selection is empty")

// ErrInvalidWeight reports a negative weight or an all-zero weight sum.
var ErrInvalidWeight = errors.New("invalid style weight")

// UnknownStyleError reports a style id absent from the archive table.
type UnknownStyleError struct {
	ID string
}

func (e *UnknownStyleError) Error() string {
	return fmt.Sprintf("unknown style %q", e.ID)
}

// Selection names one style and its blend weight.
type Selection struct {
	ID     string
	Weight float32
}

// MeanStyleID is the reserved table entry holding the stored mean
// vector. Archives that carry one pin the weighting reference to the
// exported statistic instead of the arithmetic average of the rows.
const MeanStyleID = "mean"

// Mixer looks up and blends style vectors from the archive table.
// Immutable after construction; safe for concurrent use.
type Mixer struct {
	table map[string][]float32
	mean  []float32
	dim   int
}

// NewMixer builds a mixer over an archive style table. The table must
// be non-empty with uniform vector dimensions (the archive loader
// guarantees both). A MeanStyleID row is taken as the stored mean;
// without one the mean is the arithmetic average of the rows.
func NewMixer(table map[string][]float32) (*Mixer, error) {
	if len(table) == 0 {
		return nil, errors.New("style table is empty")
	}

	dim := 0
	for _, vec := range table {
		dim = len(vec)
		break
	}
	for id, vec := range table {
		if len(vec) != dim {
			return nil, fmt.Errorf("style %q has dimension %d, want %d", id, len(vec), dim)
		}
	}

	var mean []float32
	if stored, ok := table[MeanStyleID]; ok {
		mean = append([]float32(nil), stored...)
	} else {
		mean = make([]float32, dim)
		for _, vec := range table {
			for i, v := range vec {
				mean[i] += v
			}
		}
		for i := range mean {
			mean[i] /= float32(len(table))
		}
	}

	return &Mixer{table: table, mean: mean, dim: dim}, nil
}

// Dim returns the style embedding dimension.
func (m *Mixer) Dim() int {
	return m.dim
}

// IDs returns the known style identifiers, unordered.
func (m *Mixer) IDs() []string {
	out := make([]string, 0, len(m.table))
	for id := range m.table {
		out = append(out, id)
	}
	return out
}

// Resolve blends the selected styles into one vector: the weighted
// elementwise average after normalizing weights to sum to 1. A single
// selection returns the looked-up vector unchanged, whatever its
// weight. Negative weights and zero weight sums are rejected; an
// unknown id fails before any arithmetic happens.
func (m *Mixer) Resolve(selections []Selection) ([]float32, error) {
	if len(selections) == 0 {
		return nil, ErrEmptySelection
	}

	var total float64
	vectors := make([][]float32, len(selections))
	for i, sel := range selections {
		if sel.Weight < 0 {
			return nil, fmt.Errorf("%w: style %q has weight %v", ErrInvalidWeight, sel.ID, sel.Weight)
		}
		vec, ok := m.table[sel.ID]
		if !ok {
			return nil, &UnknownStyleError{ID: sel.ID}
		}
		vectors[i] = vec
		total += float64(sel.Weight)
	}

	if len(selections) == 1 {
		return append([]float32(nil), vectors[0]...), nil
	}

	if total <= 0 {
		return nil, fmt.Errorf("%w: weights sum to zero", ErrInvalidWeight)
	}

	out := make([]float32, m.dim)
	for i, sel := range selections {
		w := float32(float64(sel.Weight) / total)
		for j, v := range vectors[i] {
			out[j] += w * v
		}
	}

	return out, nil
}

// ApplyWeight shapes a resolved vector relative to the table mean:
// mean + weight·(vector − mean). Weight 1 returns the vector
// unchanged; weight 0 collapses onto the mean.
func (m *Mixer) ApplyWeight(vector []float32, weight float32) ([]float32, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("vector has dimension %d, want %d", len(vector), m.dim)
	}

	out := make([]float32, m.dim)
	for i, v := range vector {
		out[i] = m.mean[i] + weight*(v-m.mean[i])
	}
	return out, nil
}
