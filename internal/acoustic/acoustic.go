// Package acoustic runs the acoustic model stage: phonemes, tones,
// contextual embeddings, and a style vector in; duration-expanded
// latent frames out.
package acoustic

import (
	"context"
	"fmt"

	"github.com/example/go-koe-tts/internal/bert"
	"github.com/example/go-koe-tts/internal/lingua"
	"github.com/example/go-koe-tts/internal/onnx"
)

// Graph node names of the acoustic model.
const (
	phonemesName  = "phonemes"
	tonesName     = "tones"
	bertName      = "bert"
	styleName     = "style"
	durationsName = "durations"
	latentsName   = "latents"
)

// pitchChannel is the latent channel carrying the pitch track.
const pitchChannel = 0

// InputSpecs declares the acoustic graph signature.
var InputSpecs = []onnx.NodeSpec{
	{Name: phonemesName, DType: onnx.DTypeInt64, Shape: []int64{1, -1}},
	{Name: tonesName, DType: onnx.DTypeInt64, Shape: []int64{1, -1}},
	{Name: bertName, DType: onnx.DTypeFloat32, Shape: []int64{1, -1, -1}},
	{Name: styleName, DType: onnx.DTypeFloat32, Shape: []int64{1, -1}},
}

// Frames holds the stage output: latent vectors laid out
// [Channels][Count] row-major, one column per frame.
type Frames struct {
	Data     []float32
	Channels int
	Count    int
}

// Model owns the acoustic session for one pipeline.
type Model struct {
	graph    onnx.Graph
	ids      map[string]int64
	width    int
	styleDim int
	channels int
}

// NewModel wires the acoustic graph against the archive's phoneme
// table, embedding width, style dimension, and latent channel count.
func NewModel(graph onnx.Graph, phonemes []string, width, styleDim, channels int) (*Model, error) {
	if graph == nil {
		return nil, fmt.Errorf("acoustic graph is required")
	}
	if width < 1 || styleDim < 1 || channels < 1 {
		return nil, fmt.Errorf("invalid dimensions: width=%d style=%d channels=%d", width, styleDim, channels)
	}

	ids := make(map[string]int64, len(phonemes))
	for i, p := range phonemes {
		ids[p] = int64(i)
	}

	return &Model{graph: graph, ids: ids, width: width, styleDim: styleDim, channels: channels}, nil
}

// Predict assembles the model inputs, executes the graph, and expands
// the per-phoneme latents by the predicted durations. rateScale
// multiplies every predicted duration (floored, clamped to ≥ 1 frame
// per phoneme); pitchScale multiplies the pitch channel of the
// expanded latents without re-running the model.
func (m *Model) Predict(
	ctx context.Context,
	seq *lingua.PhonemeSequence,
	emb *bert.Embeddings,
	styleVec []float32,
	rateScale, pitchScale float32,
) (*Frames, error) {
	if seq.Empty() {
		return nil, fmt.Errorf("empty phoneme sequence")
	}
	if rateScale <= 0 {
		return nil, fmt.Errorf("rate scale must be positive, got %v", rateScale)
	}

	symbols := lingua.Intersperse(seq.Symbols(), lingua.Pad)
	tones := lingua.Intersperse(seq.Tones(), 0)
	n := len(symbols)

	if emb.Width != m.width {
		return nil, fmt.Errorf(
			"%w: embeddings width %d, acoustic model expects %d",
			onnx.ErrShapeMismatch, emb.Width, m.width,
		)
	}
	if emb.Frames != n {
		return nil, fmt.Errorf(
			"%w: embeddings cover %d positions, phoneme sequence has %d",
			onnx.ErrAlignmentMismatch, emb.Frames, n,
		)
	}
	if len(styleVec) != m.styleDim {
		return nil, fmt.Errorf(
			"%w: style vector dimension %d, acoustic model expects %d",
			onnx.ErrShapeMismatch, len(styleVec), m.styleDim,
		)
	}

	phonemeIDs := make([]int64, n)
	for i, symbol := range symbols {
		id, ok := m.ids[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: phoneme %q not in model table", onnx.ErrShapeMismatch, symbol)
		}
		phonemeIDs[i] = id
	}

	toneIDs := make([]int64, n)
	for i, tone := range tones {
		toneIDs[i] = int64(tone)
	}

	inputs, err := m.assembleInputs(phonemeIDs, toneIDs, emb, styleVec)
	if err != nil {
		return nil, err
	}

	outputs, err := m.graph.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}

	durations, err := outputTensor(outputs, durationsName, []int64{1, int64(n)})
	if err != nil {
		return nil, err
	}
	latents, err := outputTensor(outputs, latentsName, []int64{1, int64(m.channels), int64(n)})
	if err != nil {
		return nil, err
	}

	durData, err := durations.Float32()
	if err != nil {
		return nil, fmt.Errorf("%w: durations: %v", onnx.ErrShapeMismatch, err)
	}
	latData, err := latents.Float32()
	if err != nil {
		return nil, fmt.Errorf("%w: latents: %v", onnx.ErrShapeMismatch, err)
	}

	frames := expandByDuration(latData, durData, m.channels, rateScale)

	if pitchScale != 1 {
		for f := 0; f < frames.Count; f++ {
			frames.Data[pitchChannel*frames.Count+f] *= pitchScale
		}
	}

	return frames, nil
}

func (m *Model) assembleInputs(
	phonemeIDs, toneIDs []int64,
	emb *bert.Embeddings,
	styleVec []float32,
) (map[string]*onnx.Tensor, error) {
	n := int64(len(phonemeIDs))

	phonemeTensor, err := onnx.NewTensor(phonemeIDs, []int64{1, n})
	if err != nil {
		return nil, fmt.Errorf("%w: phonemes: %v", onnx.ErrShapeMismatch, err)
	}
	toneTensor, err := onnx.NewTensor(toneIDs, []int64{1, n})
	if err != nil {
		return nil, fmt.Errorf("%w: tones: %v", onnx.ErrShapeMismatch, err)
	}
	bertTensor, err := onnx.NewTensor(emb.Data, []int64{1, int64(emb.Width), n})
	if err != nil {
		return nil, fmt.Errorf("%w: bert: %v", onnx.ErrShapeMismatch, err)
	}
	styleTensor, err := onnx.NewTensor(styleVec, []int64{1, int64(len(styleVec))})
	if err != nil {
		return nil, fmt.Errorf("%w: style: %v", onnx.ErrShapeMismatch, err)
	}

	return map[string]*onnx.Tensor{
		phonemesName: phonemeTensor,
		tonesName:    toneTensor,
		bertName:     bertTensor,
		styleName:    styleTensor,
	}, nil
}

// FrameCounts converts raw predicted durations into integer frame
// counts: each scaled by rateScale, floored, clamped to at least one
// frame per phoneme.
func FrameCounts(durations []float32, rateScale float32) []int {
	counts := make([]int, len(durations))
	for i, d := range durations {
		n := int(d * rateScale)
		if n < 1 {
			n = 1
		}
		counts[i] = n
	}
	return counts
}

// expandByDuration repeats latent column i counts[i] times.
func expandByDuration(latents, durations []float32, channels int, rateScale float32) *Frames {
	counts := FrameCounts(durations, rateScale)
	total := 0
	for _, c := range counts {
		total += c
	}

	cols := len(durations)
	out := make([]float32, channels*total)
	frame := 0
	for i, reps := range counts {
		for range reps {
			for ch := 0; ch < channels; ch++ {
				out[ch*total+frame] = latents[ch*cols+i]
			}
			frame++
		}
	}

	return &Frames{Data: out, Channels: channels, Count: total}
}

func outputTensor(outputs map[string]*onnx.Tensor, name string, want []int64) (*onnx.Tensor, error) {
	t, ok := outputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: acoustic graph produced no %q output", onnx.ErrShapeMismatch, name)
	}
	if !t.SameShape(want) {
		return nil, fmt.Errorf("%w: %s shape %v, want %v", onnx.ErrShapeMismatch, name, t.Shape(), want)
	}
	return t, nil
}
