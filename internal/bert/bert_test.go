package bert

import (
	"context"
	"errors"
	"testing"

	"github.com/example/go-koe-tts/internal/lingua"
	"github.com/example/go-koe-tts/internal/onnx"
)

// fakeGraph returns scripted outputs and records the inputs it saw.
type fakeGraph struct {
	outputs map[string]*onnx.Tensor
	err     error
	inputs  map[string]*onnx.Tensor
}

func (g *fakeGraph) Run(_ context.Context, inputs map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error) {
	g.inputs = inputs
	if g.err != nil {
		return nil, g.err
	}
	return g.outputs, nil
}

// fakeTokenizer returns a fixed id sequence for any text. Unless spans
// are scripted it reports one rune per token with zero-width markers at
// either end, the shape a character-level vocabulary produces.
type fakeTokenizer struct {
	ids   []int64
	spans []int
}

func (t *fakeTokenizer) Encode(string) ([]int64, []int, error) {
	spans := append([]int(nil), t.spans...)
	if spans == nil {
		spans = make([]int, len(t.ids))
		for i := 1; i < len(spans)-1; i++ {
			spans[i] = 1
		}
	}
	return append([]int64(nil), t.ids...), spans, nil
}

// testSequence builds the analyzed form of a two-character text: the
// phonemes a and i bracketed by pads, one phoneme per character.
func testSequence() *lingua.PhonemeSequence {
	return &lingua.PhonemeSequence{
		Phonemes: []lingua.Phoneme{
			{Symbol: lingua.Pad},
			{Symbol: "a"},
			{Symbol: "i"},
			{Symbol: lingua.Pad},
		},
		Word2Ph: []int{1, 1, 1, 1},
		SeqText: "あい",
	}
}

// hiddenTensor builds a [1, tokens, width] output where row i holds
// the constant i+1, so alignment is visible in the result.
func hiddenTensor(t *testing.T, tokens, width int) *onnx.Tensor {
	t.Helper()

	data := make([]float32, tokens*width)
	for i := range tokens {
		for w := range width {
			data[i*width+w] = float32(i + 1)
		}
	}

	tensor, err := onnx.NewTensor(data, []int64{1, int64(tokens), int64(width)})
	if err != nil {
		t.Fatalf("NewTensor() error = %v", err)
	}
	return tensor
}

func TestEncode_AlignsTokensToPhonemes(t *testing.T) {
	const width = 2

	graph := &fakeGraph{outputs: map[string]*onnx.Tensor{
		"hidden": hiddenTensor(t, 4, width),
	}}
	enc, err := NewEncoder(graph, &fakeTokenizer{ids: []int64{1, 10, 11, 2}}, width)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	emb, err := enc.Encode(context.Background(), testSequence())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Doubled distribution [2 2 2 2] with the extra leading pad on the
	// first token gives [3 2 2 2]: nine frames for the interspersed
	// sequence of length 2*4+1.
	if emb.Frames != 9 {
		t.Fatalf("Frames = %d; want 9", emb.Frames)
	}
	if emb.Width != width {
		t.Fatalf("Width = %d; want %d", emb.Width, width)
	}
	if len(emb.Data) != width*9 {
		t.Fatalf("len(Data) = %d; want %d", len(emb.Data), width*9)
	}

	wantRows := []float32{1, 1, 1, 2, 2, 3, 3, 4, 4}
	for f, want := range wantRows {
		for w := range width {
			if got := emb.Data[w*emb.Frames+f]; got != want {
				t.Errorf("Data[width %d, frame %d] = %v; want %v", w, f, got, want)
			}
		}
	}
}

func TestEncode_PassesMaskOfOnes(t *testing.T) {
	graph := &fakeGraph{outputs: map[string]*onnx.Tensor{
		"hidden": hiddenTensor(t, 4, 2),
	}}
	enc, err := NewEncoder(graph, &fakeTokenizer{ids: []int64{1, 10, 11, 2}}, 2)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	if _, err := enc.Encode(context.Background(), testSequence()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	mask, ok := graph.inputs["attention_mask"]
	if !ok {
		t.Fatal("graph did not receive attention_mask")
	}
	vals, err := mask.Int64()
	if err != nil {
		t.Fatalf("Int64() error = %v", err)
	}
	if len(vals) != 4 {
		t.Fatalf("mask length = %d; want 4", len(vals))
	}
	for i, v := range vals {
		if v != 1 {
			t.Errorf("mask[%d] = %d; want 1", i, v)
		}
	}
}

func TestEncode_AlignmentMismatch(t *testing.T) {
	// Three single-rune tokens cover one character; the sequence has two.
	graph := &fakeGraph{outputs: map[string]*onnx.Tensor{
		"hidden": hiddenTensor(t, 3, 2),
	}}
	enc, err := NewEncoder(graph, &fakeTokenizer{ids: []int64{1, 10, 2}}, 2)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	_, err = enc.Encode(context.Background(), testSequence())
	if !errors.Is(err, onnx.ErrAlignmentMismatch) {
		t.Errorf("Encode() error = %v; want ErrAlignmentMismatch", err)
	}
}

func TestEncode_MultiRuneSubwords(t *testing.T) {
	const width = 2

	// One piece absorbs both characters, as a subword tokenizer would
	// produce: counts [1 2 1] fold into repetitions [3 4 2].
	graph := &fakeGraph{outputs: map[string]*onnx.Tensor{
		"hidden": hiddenTensor(t, 3, width),
	}}
	tok := &fakeTokenizer{ids: []int64{1, 10, 2}, spans: []int{0, 2, 0}}
	enc, err := NewEncoder(graph, tok, width)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	emb, err := enc.Encode(context.Background(), testSequence())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if emb.Frames != 9 {
		t.Fatalf("Frames = %d; want 9", emb.Frames)
	}
	wantRows := []float32{1, 1, 1, 2, 2, 2, 2, 3, 3}
	for f, want := range wantRows {
		for w := range width {
			if got := emb.Data[w*emb.Frames+f]; got != want {
				t.Errorf("Data[width %d, frame %d] = %v; want %v", w, f, got, want)
			}
		}
	}
}

func TestEncode_SpanTilingErrors(t *testing.T) {
	tests := []struct {
		name  string
		spans []int
	}{
		{name: "spans overrun the characters", spans: []int{0, 3, 0}},
		{name: "spans leave a character uncovered", spans: []int{0, 1, 0}},
		{name: "negative span", spans: []int{0, -1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := &fakeGraph{outputs: map[string]*onnx.Tensor{
				"hidden": hiddenTensor(t, 3, 2),
			}}
			tok := &fakeTokenizer{ids: []int64{1, 10, 2}, spans: tt.spans}
			enc, err := NewEncoder(graph, tok, 2)
			if err != nil {
				t.Fatalf("NewEncoder() error = %v", err)
			}

			_, err = enc.Encode(context.Background(), testSequence())
			if !errors.Is(err, onnx.ErrAlignmentMismatch) {
				t.Errorf("Encode() error = %v; want ErrAlignmentMismatch", err)
			}
		})
	}
}

func TestEncode_HiddenShapeChecks(t *testing.T) {
	tests := []struct {
		name    string
		outputs func(t *testing.T) map[string]*onnx.Tensor
	}{
		{
			name: "missing hidden output",
			outputs: func(t *testing.T) map[string]*onnx.Tensor {
				return map[string]*onnx.Tensor{}
			},
		},
		{
			name: "wrong token count",
			outputs: func(t *testing.T) map[string]*onnx.Tensor {
				return map[string]*onnx.Tensor{"hidden": hiddenTensor(t, 5, 2)}
			},
		},
		{
			name: "wrong width",
			outputs: func(t *testing.T) map[string]*onnx.Tensor {
				return map[string]*onnx.Tensor{"hidden": hiddenTensor(t, 4, 3)}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			graph := &fakeGraph{outputs: tt.outputs(t)}
			enc, err := NewEncoder(graph, &fakeTokenizer{ids: []int64{1, 10, 11, 2}}, 2)
			if err != nil {
				t.Fatalf("NewEncoder() error = %v", err)
			}

			_, err = enc.Encode(context.Background(), testSequence())
			if !errors.Is(err, onnx.ErrShapeMismatch) {
				t.Errorf("Encode() error = %v; want ErrShapeMismatch", err)
			}
		})
	}
}

func TestEncode_TwoDimensionalHidden(t *testing.T) {
	// Some exports drop the batch dimension; [L, W] is accepted too.
	data := []float32{1, 1, 2, 2, 3, 3, 4, 4}
	hidden, err := onnx.NewTensor(data, []int64{4, 2})
	if err != nil {
		t.Fatalf("NewTensor() error = %v", err)
	}

	graph := &fakeGraph{outputs: map[string]*onnx.Tensor{"hidden": hidden}}
	enc, err := NewEncoder(graph, &fakeTokenizer{ids: []int64{1, 10, 11, 2}}, 2)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	emb, err := enc.Encode(context.Background(), testSequence())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if emb.Frames != 9 {
		t.Errorf("Frames = %d; want 9", emb.Frames)
	}
}

func TestEncode_EmptySequence(t *testing.T) {
	enc, err := NewEncoder(&fakeGraph{}, &fakeTokenizer{}, 4)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	emb, err := enc.Encode(context.Background(), &lingua.PhonemeSequence{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if emb.Frames != 0 {
		t.Errorf("Frames = %d; want 0", emb.Frames)
	}
	if emb.Width != 4 {
		t.Errorf("Width = %d; want 4", emb.Width)
	}
}

func TestEncode_GraphErrorPropagates(t *testing.T) {
	backendErr := &onnx.BackendError{Graph: "bert", Err: errors.New("boom")}
	graph := &fakeGraph{err: backendErr}
	enc, err := NewEncoder(graph, &fakeTokenizer{ids: []int64{1, 10, 11, 2}}, 2)
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}

	_, err = enc.Encode(context.Background(), testSequence())
	var backend *onnx.BackendError
	if !errors.As(err, &backend) {
		t.Errorf("Encode() error = %v; want *BackendError", err)
	}
}
