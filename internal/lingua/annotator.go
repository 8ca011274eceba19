package lingua

import (
	"errors"
	"fmt"

	"github.com/ikawaha/kagome-dict/ipa"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"
)

// ErrDictionaryUnavailable reports that the morphological dictionary
// could not be constructed. Fatal: no analysis is possible without it.
var ErrDictionaryUnavailable = errors.New("morphological dictionary unavailable")

// Token is one annotated segment from the morphological analyzer:
// surface form, katakana reading, and accent type (0 = heiban).
type Token struct {
	Surface    string
	Reading    string
	AccentType int
}

// Annotator is the morphological-analysis collaborator boundary. An
// Annotator must be a pure function of its input text and dictionary;
// independent handles are safe to use concurrently.
type Annotator interface {
	Annotate(text string) ([]Token, error)
}

// KagomeAnnotator annotates text with the kagome tokenizer over the
// bundled IPA dictionary.
type KagomeAnnotator struct {
	tok *kagome.Tokenizer
}

// NewKagomeAnnotator builds an annotator backed by the IPA dictionary.
func NewKagomeAnnotator() (*KagomeAnnotator, error) {
	tok, err := kagome.New(ipa.Dict(), kagome.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryUnavailable, err)
	}
	return &KagomeAnnotator{tok: tok}, nil
}

// Annotate segments text and attaches readings. The IPA dictionary
// carries no accent information, so every token reports accent type 0;
// accent-aware annotators can be injected in its place.
func (a *KagomeAnnotator) Annotate(text string) ([]Token, error) {
	if text == "" {
		return nil, nil
	}

	out := make([]Token, 0, len(text)/2)
	for _, t := range a.tok.Tokenize(text) {
		reading := ""
		if p, ok := t.Pronunciation(); ok {
			reading = p
		} else if r, ok := t.Reading(); ok {
			reading = r
		}

		out = append(out, Token{
			Surface: t.Surface,
			Reading: reading,
		})
	}

	return out, nil
}
