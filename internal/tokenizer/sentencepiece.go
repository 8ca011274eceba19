package tokenizer

import (
	"errors"
	"fmt"
	"os"

	gosp "github.com/vikesh-raj/go-sentencepiece-encoder/sentencepiece"
)

// SentencePieceTokenizer implements Tokenizer over a SentencePiece
// model bundled in the archive, for models trained with subword
// vocabularies instead of character tables.
type SentencePieceTokenizer struct {
	proc gosp.Sentencepiece
	cls  int64
	sep  int64
}

// NewSentencePieceTokenizer loads a SentencePiece model from raw
// bytes. The data is staged through a temporary file because the
// upstream library only exposes a file-path API.
func NewSentencePieceTokenizer(data []byte) (*SentencePieceTokenizer, error) {
	if len(data) == 0 {
		return nil, errors.New("tokenizer model data must not be empty")
	}

	f, err := os.CreateTemp("", "sp-*.model")
	if err != nil {
		return nil, fmt.Errorf("create temp sentencepiece file: %w", err)
	}

	defer func() { _ = os.Remove(f.Name()) }() // best-effort temp file cleanup

	_, err = f.Write(data)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write tokenizer model bytes: %w", err)
	}

	path := f.Name()

	err = f.Close()
	if err != nil {
		return nil, fmt.Errorf("close tokenizer temp file: %w", err)
	}

	proc, err := gosp.NewSentencepieceFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("load sentencepiece model: %w", err)
	}

	return &SentencePieceTokenizer{proc: proc, cls: defaultClsID, sep: defaultSepID}, nil
}

// wordBoundaryMark is the marker SentencePiece prefixes onto pieces
// that open a word. It is tokenizer metadata, not input text.
const wordBoundaryMark = '▁'

// Encode tokenizes text and returns [CLS] + subword ids + [SEP] with
// the rune span each subword covers. Spans come from the piece
// surfaces with word-boundary marks stripped, so a piece spanning
// several characters reports all of them.
func (t *SentencePieceTokenizer) Encode(text string) ([]int64, []int, error) {
	if text == "" {
		return []int64{}, []int{}, nil
	}

	tokens := t.proc.Tokenize(text)

	ids := make([]int64, 0, len(tokens)+2)
	spans := make([]int, 0, len(tokens)+2)
	ids = append(ids, t.cls)
	spans = append(spans, 0)
	for _, tok := range tokens {
		span := 0
		for _, r := range tok.Text {
			if r != wordBoundaryMark {
				span++
			}
		}
		ids = append(ids, int64(tok.ID))
		spans = append(spans, span)
	}
	ids = append(ids, t.sep)
	spans = append(spans, 0)

	return ids, spans, nil
}
