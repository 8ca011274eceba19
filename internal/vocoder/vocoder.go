// Package vocoder runs the final model stage: acoustic latent frames
// in, raw PCM samples out.
package vocoder

import (
	"context"
	"fmt"

	"github.com/example/go-koe-tts/internal/acoustic"
	"github.com/example/go-koe-tts/internal/onnx"
)

// Graph node names of the vocoder.
const (
	latentsName = "latents"
	pcmName     = "pcm"
)

// InputSpecs declares the vocoder graph signature.
var InputSpecs = []onnx.NodeSpec{
	{Name: latentsName, DType: onnx.DTypeFloat32, Shape: []int64{1, -1, -1}},
}

// Vocoder owns the vocoder session for one pipeline.
type Vocoder struct {
	graph    onnx.Graph
	channels int
	hop      int
}

// New wires the vocoder graph against the archive's latent channel
// count and hop length.
func New(graph onnx.Graph, channels, hop int) (*Vocoder, error) {
	if graph == nil {
		return nil, fmt.Errorf("vocoder graph is required")
	}
	if channels < 1 || hop < 1 {
		return nil, fmt.Errorf("invalid dimensions: channels=%d hop=%d", channels, hop)
	}
	return &Vocoder{graph: graph, channels: channels, hop: hop}, nil
}

// Synthesize decodes latent frames into PCM samples. The output must
// be exactly frames × hop samples; anything else fails rather than
// being truncated or padded silently.
func (v *Vocoder) Synthesize(ctx context.Context, frames *acoustic.Frames) ([]float32, error) {
	if frames.Count == 0 {
		return nil, fmt.Errorf("no latent frames to decode")
	}
	if frames.Channels != v.channels {
		return nil, fmt.Errorf(
			"%w: frames have %d channels, vocoder expects %d",
			onnx.ErrShapeMismatch, frames.Channels, v.channels,
		)
	}

	latents, err := onnx.NewTensor(frames.Data, []int64{1, int64(frames.Channels), int64(frames.Count)})
	if err != nil {
		return nil, fmt.Errorf("%w: latents: %v", onnx.ErrShapeMismatch, err)
	}

	outputs, err := v.graph.Run(ctx, map[string]*onnx.Tensor{latentsName: latents})
	if err != nil {
		return nil, err
	}

	pcm, ok := outputs[pcmName]
	if !ok {
		return nil, fmt.Errorf("%w: vocoder graph produced no %q output", onnx.ErrShapeMismatch, pcmName)
	}

	samples, err := pcm.Float32()
	if err != nil {
		return nil, fmt.Errorf("%w: pcm: %v", onnx.ErrShapeMismatch, err)
	}

	want := frames.Count * v.hop
	if len(samples) != want {
		return nil, fmt.Errorf(
			"%w: vocoder produced %d samples for %d frames (hop %d, want %d)",
			onnx.ErrLengthMismatch, len(samples), frames.Count, v.hop, want,
		)
	}

	return samples, nil
}
