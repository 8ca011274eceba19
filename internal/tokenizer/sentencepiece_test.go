package tokenizer

import "testing"

func TestNewSentencePieceTokenizer_BadInput(t *testing.T) {
	if _, err := NewSentencePieceTokenizer(nil); err == nil {
		t.Error("NewSentencePieceTokenizer(nil) error = nil; want error")
	}

	if _, err := NewSentencePieceTokenizer([]byte("not a sentencepiece model")); err == nil {
		t.Error("NewSentencePieceTokenizer(garbage) error = nil; want error")
	}
}
