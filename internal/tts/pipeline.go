// Package tts sequences the synthesis pipeline: linguistic analysis,
// contextual encoding, style resolution, acoustic prediction, and
// vocoding, with one immutable model archive behind any number of
// per-request pipelines.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/go-koe-tts/internal/acoustic"
	"github.com/example/go-koe-tts/internal/archive"
	"github.com/example/go-koe-tts/internal/bert"
	"github.com/example/go-koe-tts/internal/lingua"
	"github.com/example/go-koe-tts/internal/onnx"
	"github.com/example/go-koe-tts/internal/style"
	"github.com/example/go-koe-tts/internal/tokenizer"
	"github.com/example/go-koe-tts/internal/vocoder"
)

// Waveform is the terminal synthesis artifact: mono float32 samples at
// the archive's declared sample rate.
type Waveform struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the waveform length in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate == 0 {
		return 0
	}
	return float64(len(w.Samples)) / float64(w.SampleRate)
}

// Request holds one synthesis call's inputs.
type Request struct {
	Text string
	// Styles selects the speaker/style blend. Required.
	Styles []style.Selection
	// StyleWeight shapes the resolved vector relative to the table
	// mean. Zero means 1 (unchanged).
	StyleWeight float32
	// RateScale multiplies predicted phoneme durations. Zero means 1.
	RateScale float32
	// PitchScale multiplies the pitch channel. Zero means 1.
	PitchScale float32
	// SplitLines synthesizes each input line separately and joins the
	// segments with a short silence.
	SplitLines bool
}

// Graphs holds the three stage sessions a pipeline owns exclusively.
type Graphs struct {
	Bert     onnx.Graph
	Acoustic onnx.Graph
	Vocoder  onnx.Graph
}

// Pipeline owns one set of inference sessions bound to a shared
// archive. A Pipeline must not be used concurrently; concurrent
// requests get their own Pipeline over the same Archive.
type Pipeline struct {
	frontEnd *lingua.FrontEnd
	encoder  *bert.Encoder
	mixer    *style.Mixer
	acoustic *acoustic.Model
	vocoder  *vocoder.Vocoder
	meta     *archive.Metadata

	close func()
}

// New constructs a pipeline with ORT sessions created from the archive
// graphs. cfg is forwarded to the backend unchanged.
func New(arch *archive.Archive, annotator lingua.Annotator, cfg onnx.RunnerConfig) (*Pipeline, error) {
	bertBlob, err := arch.Model(archive.ModelBert)
	if err != nil {
		return nil, err
	}
	acousticBlob, err := arch.Model(archive.ModelAcoustic)
	if err != nil {
		return nil, err
	}
	vocoderBlob, err := arch.Model(archive.ModelVocoder)
	if err != nil {
		return nil, err
	}

	bertRunner, err := onnx.NewRunnerFromBytes(archive.ModelBert, bertBlob, bert.InputSpecs, cfg)
	if err != nil {
		return nil, err
	}
	acousticRunner, err := onnx.NewRunnerFromBytes(archive.ModelAcoustic, acousticBlob, acoustic.InputSpecs, cfg)
	if err != nil {
		bertRunner.Close()
		return nil, err
	}
	vocoderRunner, err := onnx.NewRunnerFromBytes(archive.ModelVocoder, vocoderBlob, vocoder.InputSpecs, cfg)
	if err != nil {
		bertRunner.Close()
		acousticRunner.Close()
		return nil, err
	}

	p, err := NewWithGraphs(arch, annotator, Graphs{
		Bert:     bertRunner,
		Acoustic: acousticRunner,
		Vocoder:  vocoderRunner,
	})
	if err != nil {
		bertRunner.Close()
		acousticRunner.Close()
		vocoderRunner.Close()
		return nil, err
	}

	p.close = func() {
		bertRunner.Close()
		acousticRunner.Close()
		vocoderRunner.Close()
	}

	return p, nil
}

// NewWithGraphs constructs a pipeline over caller-supplied sessions.
func NewWithGraphs(arch *archive.Archive, annotator lingua.Annotator, graphs Graphs) (*Pipeline, error) {
	meta := arch.Metadata()

	tok, err := newTokenizer(arch)
	if err != nil {
		return nil, err
	}

	frontEnd, err := lingua.NewFrontEnd(annotator, meta.Phonemes)
	if err != nil {
		return nil, fmt.Errorf("linguistic front-end: %w", err)
	}

	encoder, err := bert.NewEncoder(graphs.Bert, tok, meta.EmbeddingWidth)
	if err != nil {
		return nil, fmt.Errorf("contextual encoder: %w", err)
	}

	mixer, err := style.NewMixer(meta.Styles)
	if err != nil {
		return nil, fmt.Errorf("style mixer: %w", err)
	}

	acousticModel, err := acoustic.NewModel(
		graphs.Acoustic, meta.Phonemes, meta.EmbeddingWidth, mixer.Dim(), meta.LatentChannels,
	)
	if err != nil {
		return nil, fmt.Errorf("acoustic model: %w", err)
	}

	voc, err := vocoder.New(graphs.Vocoder, meta.LatentChannels, meta.HopLength)
	if err != nil {
		return nil, fmt.Errorf("vocoder: %w", err)
	}

	return &Pipeline{
		frontEnd: frontEnd,
		encoder:  encoder,
		mixer:    mixer,
		acoustic: acousticModel,
		vocoder:  voc,
		meta:     meta,
	}, nil
}

func newTokenizer(arch *archive.Archive) (tokenizer.Tokenizer, error) {
	meta := arch.Metadata()
	switch meta.Tokenizer {
	case archive.TokenizerSentencePiece:
		data, err := arch.Extra(meta.SPModelEntry)
		if err != nil {
			return nil, err
		}
		return tokenizer.NewSentencePieceTokenizer(data)
	default:
		return tokenizer.NewVocabTokenizer(meta.Vocab)
	}
}

// SampleRate returns the archive's declared output sample rate.
func (p *Pipeline) SampleRate() int {
	return p.meta.SampleRate
}

// Styles returns the selectable style identifiers.
func (p *Pipeline) Styles() []string {
	return p.mixer.IDs()
}

// Close releases the pipeline's sessions. The shared archive is
// untouched.
func (p *Pipeline) Close() {
	if p.close != nil {
		p.close()
		p.close = nil
	}
}

// silenceGapSeconds separates line segments in split-line synthesis.
const silenceGapSeconds = 0.5

// Synthesize runs the full pipeline for one request. Stage failures
// are returned tagged with the stage that produced them; nothing is
// retried internally because the graphs are deterministic and a repeat
// would reproduce the same failure. Cancellation is honored at stage
// boundaries only.
func (p *Pipeline) Synthesize(ctx context.Context, req Request) (*Waveform, error) {
	if req.RateScale == 0 {
		req.RateScale = 1
	}
	if req.PitchScale == 0 {
		req.PitchScale = 1
	}
	if req.StyleWeight == 0 {
		req.StyleWeight = 1
	}

	segments := []string{req.Text}
	if req.SplitLines {
		segments = strings.Split(req.Text, "\n")
	}

	var samples []float32
	gap := make([]float32, int(float64(p.meta.SampleRate)*silenceGapSeconds))

	synthesized := 0
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}

		part, err := p.synthesizeSegment(ctx, segment, req)
		if err != nil {
			return nil, err
		}
		if len(part) == 0 {
			continue
		}

		if synthesized > 0 {
			samples = append(samples, gap...)
		}
		samples = append(samples, part...)
		synthesized++
	}

	if samples == nil {
		samples = []float32{}
	}

	slog.Debug("synthesis complete", "segments", synthesized, "samples", len(samples))

	return &Waveform{Samples: samples, SampleRate: p.meta.SampleRate}, nil
}

func (p *Pipeline) synthesizeSegment(ctx context.Context, text string, req Request) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seq, err := p.frontEnd.Analyze(text)
	if err != nil {
		return nil, &StageError{Stage: StageLinguistic, Err: err}
	}
	if seq.Empty() {
		return nil, nil
	}
	if seq.Substitutions > 0 {
		slog.Warn("out-of-vocabulary substitutions", "count", seq.Substitutions, "text_len", len(text))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The contextual encoder and the style mixer have no data
	// dependency on each other; run them concurrently and join before
	// the acoustic stage.
	type encodeResult struct {
		emb *bert.Embeddings
		err error
	}
	encodeCh := make(chan encodeResult, 1)
	go func() {
		emb, err := p.encoder.Encode(ctx, seq)
		encodeCh <- encodeResult{emb: emb, err: err}
	}()

	styleVec, styleErr := p.resolveStyle(req)
	enc := <-encodeCh

	if enc.err != nil {
		return nil, &StageError{Stage: StageEncoder, Err: enc.err}
	}
	if styleErr != nil {
		return nil, &StageError{Stage: StageStyle, Err: styleErr}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frames, err := p.acoustic.Predict(ctx, seq, enc.emb, styleVec, req.RateScale, req.PitchScale)
	if err != nil {
		return nil, &StageError{Stage: StageAcoustic, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples, err := p.vocoder.Synthesize(ctx, frames)
	if err != nil {
		return nil, &StageError{Stage: StageVocoder, Err: err}
	}

	return samples, nil
}

func (p *Pipeline) resolveStyle(req Request) ([]float32, error) {
	vec, err := p.mixer.Resolve(req.Styles)
	if err != nil {
		return nil, err
	}
	return p.mixer.ApplyWeight(vec, req.StyleWeight)
}
