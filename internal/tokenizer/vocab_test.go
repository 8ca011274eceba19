package tokenizer

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewVocabTokenizer_EmptyVocab(t *testing.T) {
	_, err := NewVocabTokenizer(nil)
	if !errors.Is(err, ErrEmptyVocab) {
		t.Errorf("NewVocabTokenizer(nil) error = %v; want ErrEmptyVocab", err)
	}
}

func TestVocabTokenizer_Encode(t *testing.T) {
	vocab := map[string]int64{
		"[CLS]": 1,
		"[SEP]": 2,
		"[UNK]": 3,
		"こ":     10,
		"ん":     11,
	}

	tok, err := NewVocabTokenizer(vocab)
	if err != nil {
		t.Fatalf("NewVocabTokenizer() error = %v", err)
	}

	tests := []struct {
		name      string
		text      string
		want      []int64
		wantSpans []int
	}{
		{
			name:      "known characters bracketed",
			text:      "こん",
			want:      []int64{1, 10, 11, 2},
			wantSpans: []int{0, 1, 1, 0},
		},
		{
			name:      "unknown character maps to unk",
			text:      "こX",
			want:      []int64{1, 10, 3, 2},
			wantSpans: []int{0, 1, 1, 0},
		},
		{
			name:      "empty text yields empty slices",
			text:      "",
			want:      []int64{},
			wantSpans: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, spans, err := tok.Encode(tt.text)
			if err != nil {
				t.Fatalf("Encode(%q) error = %v", tt.text, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode(%q) = %v; want %v", tt.text, got, tt.want)
			}
			if !reflect.DeepEqual(spans, tt.wantSpans) {
				t.Errorf("Encode(%q) spans = %v; want %v", tt.text, spans, tt.wantSpans)
			}
		})
	}
}

func TestVocabTokenizer_DefaultSpecialIDs(t *testing.T) {
	// A table without the marker keys falls back to the conventional ids.
	tok, err := NewVocabTokenizer(map[string]int64{"あ": 7})
	if err != nil {
		t.Fatalf("NewVocabTokenizer() error = %v", err)
	}

	got, _, err := tok.Encode("あX")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	want := []int64{defaultClsID, 7, defaultUnkID, defaultSepID}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %v; want %v", got, want)
	}
}
