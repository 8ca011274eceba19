// Package bert runs the contextual encoder stage: subword tokens
// through a BERT-style graph, with the per-token embeddings realigned
// onto phoneme positions.
package bert

import (
	"context"
	"fmt"

	"github.com/example/go-koe-tts/internal/lingua"
	"github.com/example/go-koe-tts/internal/onnx"
	"github.com/example/go-koe-tts/internal/tokenizer"
)

// Graph node names of the contextual encoder.
const (
	inputIDsName      = "input_ids"
	attentionMaskName = "attention_mask"
	hiddenName        = "hidden"
)

// InputSpecs declares the encoder graph signature.
var InputSpecs = []onnx.NodeSpec{
	{Name: inputIDsName, DType: onnx.DTypeInt64, Shape: []int64{1, -1}},
	{Name: attentionMaskName, DType: onnx.DTypeInt64, Shape: []int64{1, -1}},
}

// Embeddings holds phoneme-aligned contextual features laid out
// [Width][Frames] row-major, matching the acoustic graph's bert input.
type Embeddings struct {
	Data   []float32
	Width  int
	Frames int
}

// Encoder owns the contextual encoder session for one pipeline.
type Encoder struct {
	graph onnx.Graph
	tok   tokenizer.Tokenizer
	width int
}

// NewEncoder wires a tokenizer and an encoder graph. width is the
// archive-declared embedding width.
func NewEncoder(graph onnx.Graph, tok tokenizer.Tokenizer, width int) (*Encoder, error) {
	if graph == nil {
		return nil, fmt.Errorf("encoder graph is required")
	}
	if tok == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if width < 1 {
		return nil, fmt.Errorf("embedding width must be positive, got %d", width)
	}
	return &Encoder{graph: graph, tok: tok, width: width}, nil
}

// Encode tokenizes the analyzed text, runs the encoder graph, and
// repeats each token embedding over the phonemes attributed to it. The
// result covers the pad-interspersed sequence length. A token count
// that does not match the phoneme distribution is a hard error, never
// a silent truncation.
func (e *Encoder) Encode(ctx context.Context, seq *lingua.PhonemeSequence) (*Embeddings, error) {
	if seq.Empty() {
		return &Embeddings{Width: e.width}, nil
	}

	ids, spans, err := e.tok.Encode(seq.SeqText)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if len(ids) != len(spans) {
		return nil, fmt.Errorf(
			"%w: tokenizer returned %d ids with %d spans",
			onnx.ErrAlignmentMismatch, len(ids), len(spans),
		)
	}

	counts, err := tokenPhonemeCounts(spans, seq.Word2Ph)
	if err != nil {
		return nil, err
	}

	// Pad interspersion doubles every phoneme position; the leading pad
	// attaches to the first token.
	word2ph := make([]int, len(counts))
	for i, n := range counts {
		word2ph[i] = n * 2
	}
	word2ph[0]++

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}

	idsTensor, err := onnx.NewTensor(ids, []int64{1, int64(len(ids))})
	if err != nil {
		return nil, fmt.Errorf("%w: input_ids: %v", onnx.ErrShapeMismatch, err)
	}
	maskTensor, err := onnx.NewTensor(mask, []int64{1, int64(len(mask))})
	if err != nil {
		return nil, fmt.Errorf("%w: attention_mask: %v", onnx.ErrShapeMismatch, err)
	}

	outputs, err := e.graph.Run(ctx, map[string]*onnx.Tensor{
		inputIDsName:      idsTensor,
		attentionMaskName: maskTensor,
	})
	if err != nil {
		return nil, err
	}

	hidden, ok := outputs[hiddenName]
	if !ok {
		return nil, fmt.Errorf("%w: encoder graph produced no %q output", onnx.ErrShapeMismatch, hiddenName)
	}

	perToken, err := hiddenRows(hidden, len(ids), e.width)
	if err != nil {
		return nil, err
	}

	return alignToPhonemes(perToken, word2ph, e.width), nil
}

// tokenPhonemeCounts folds the per-character phoneme distribution onto
// tokens: a token spanning k characters absorbs those characters'
// phoneme counts, and the bracketing pad entries ride with the first
// and last token. Spans that do not tile the character sequence
// exactly are a hard error, never a silent truncation.
func tokenPhonemeCounts(spans []int, word2ph []int) ([]int, error) {
	if len(spans) == 0 || len(word2ph) < 2 {
		return nil, fmt.Errorf(
			"%w: %d subword tokens for %d aligned positions",
			onnx.ErrAlignmentMismatch, len(spans), len(word2ph),
		)
	}

	chars := word2ph[1 : len(word2ph)-1]
	counts := make([]int, len(spans))
	pos := 0
	for i, span := range spans {
		if span < 0 || pos+span > len(chars) {
			return nil, fmt.Errorf(
				"%w: token spans cover %d characters, sequence has %d",
				onnx.ErrAlignmentMismatch, pos+span, len(chars),
			)
		}
		for range span {
			counts[i] += chars[pos]
			pos++
		}
	}
	if pos != len(chars) {
		return nil, fmt.Errorf(
			"%w: token spans cover %d characters, sequence has %d",
			onnx.ErrAlignmentMismatch, pos, len(chars),
		)
	}

	counts[0] += word2ph[0]
	counts[len(counts)-1] += word2ph[len(word2ph)-1]

	return counts, nil
}

// hiddenRows validates the hidden tensor as [1, L, W] or [L, W] and
// returns it as L rows of width W.
func hiddenRows(hidden *onnx.Tensor, tokens, width int) ([][]float32, error) {
	shape := hidden.Shape()
	ok := false
	switch len(shape) {
	case 3:
		ok = shape[0] == 1 && shape[1] == int64(tokens) && shape[2] == int64(width)
	case 2:
		ok = shape[0] == int64(tokens) && shape[1] == int64(width)
	}
	if !ok {
		return nil, fmt.Errorf(
			"%w: hidden shape %v, want [1 %d %d]",
			onnx.ErrShapeMismatch, shape, tokens, width,
		)
	}

	data, err := hidden.Float32()
	if err != nil {
		return nil, fmt.Errorf("%w: hidden: %v", onnx.ErrShapeMismatch, err)
	}

	rows := make([][]float32, tokens)
	for i := range rows {
		rows[i] = data[i*width : (i+1)*width]
	}
	return rows, nil
}

// alignToPhonemes repeats token row i word2ph[i] times, then stores
// the result transposed as [Width][Frames].
func alignToPhonemes(rows [][]float32, word2ph []int, width int) *Embeddings {
	frames := 0
	for _, n := range word2ph {
		frames += n
	}

	out := make([]float32, width*frames)
	frame := 0
	for i, reps := range word2ph {
		for range reps {
			for w, v := range rows[i] {
				out[w*frames+frame] = v
			}
			frame++
		}
	}

	return &Embeddings{Data: out, Width: width, Frames: frames}
}
