// Package lingua is the linguistic front-end: it turns raw Japanese
// text into the phoneme/accent sequence the acoustic model consumes,
// delegating segmentation and readings to a morphological annotator.
package lingua

import (
	"fmt"
	"strings"
)

// UnknownSymbol is substituted for characters the phoneme inventory
// cannot express. Substitution is not an error; it is counted and
// reported so callers can detect degraded output.
const UnknownSymbol = "'"

// Pad brackets every analyzed sequence and separates model input
// positions.
const Pad = "_"

// Phoneme is one entry of an analyzed sequence.
type Phoneme struct {
	Symbol       string
	Tone         int
	WordBoundary bool
}

// PhonemeSequence is the front-end output: phonemes with pitch levels
// and word boundaries, bracketed by pad symbols, plus the
// per-character phoneme distribution used for embedding alignment.
type PhonemeSequence struct {
	Phonemes []Phoneme
	// Word2Ph holds one entry per character of SeqText plus one for
	// each bracketing pad; entry i is the number of phonemes attributed
	// to that character.
	Word2Ph []int
	// SeqText is the normalized surface text, concatenated per token.
	// It is what the contextual encoder tokenizes.
	SeqText string
	// Substitutions counts out-of-vocabulary characters replaced by
	// UnknownSymbol.
	Substitutions int
}

// Empty reports whether analysis produced no phonemes.
func (s *PhonemeSequence) Empty() bool {
	return len(s.Phonemes) == 0
}

// Symbols returns the phoneme symbols in order.
func (s *PhonemeSequence) Symbols() []string {
	out := make([]string, len(s.Phonemes))
	for i, p := range s.Phonemes {
		out[i] = p.Symbol
	}
	return out
}

// Tones returns the per-phoneme pitch levels in order.
func (s *PhonemeSequence) Tones() []int {
	out := make([]int, len(s.Phonemes))
	for i, p := range s.Phonemes {
		out[i] = p.Tone
	}
	return out
}

// FrontEnd analyzes text against a fixed phoneme inventory. It holds
// no mutable state; one instance is safe for concurrent use as long as
// the annotator is.
type FrontEnd struct {
	annotator Annotator
	inventory map[string]struct{}
}

// NewFrontEnd builds a front-end mapping annotator output onto the
// given phoneme inventory (the archive's symbol table).
func NewFrontEnd(annotator Annotator, inventory []string) (*FrontEnd, error) {
	if annotator == nil {
		return nil, fmt.Errorf("annotator is required")
	}

	set := make(map[string]struct{}, len(inventory))
	for _, symbol := range inventory {
		set[symbol] = struct{}{}
	}
	if _, ok := set[UnknownSymbol]; !ok {
		return nil, fmt.Errorf("phoneme inventory lacks the unknown symbol %q", UnknownSymbol)
	}

	return &FrontEnd{annotator: annotator, inventory: set}, nil
}

// Analyze converts text into a PhonemeSequence. Out-of-vocabulary
// characters are substituted, never fatal; the only fatal failure is
// an unavailable dictionary. Empty or whitespace-only input yields an
// empty sequence.
func (f *FrontEnd) Analyze(text string) (*PhonemeSequence, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return &PhonemeSequence{}, nil
	}

	tokens, err := f.annotator.Annotate(normalized)
	if err != nil {
		return nil, fmt.Errorf("annotate text: %w", err)
	}

	substitutions := 0

	var words []string
	var readings []string
	var accents []int
	for _, tok := range tokens {
		word := ReplacePunctuation(tok.Surface)
		if word == "" {
			continue
		}

		yomi := stripAccentMarks(tok.Reading)
		switch {
		case isAllKatakana(yomi):
		case isAllPunctuation(word):
			yomi = word
		case isAllKatakana(word):
			// Katakana surface the dictionary has no entry for reads as itself.
			yomi = word
		default:
			n := runeCount(word)
			yomi = strings.Repeat(UnknownSymbol, n)
			substitutions += n
		}

		words = append(words, word)
		readings = append(readings, yomi)
		accents = append(accents, tok.AccentType)
	}

	sepPhonemes := make([][]string, len(readings))
	for i, yomi := range readings {
		symbols, unknown := kataToPhonemeList(yomi)
		substitutions += unknown
		sepPhonemes[i] = symbols
	}
	sepPhonemes = handleLong(sepPhonemes)

	// Anything the inventory cannot express degrades to the unknown
	// symbol rather than failing the request.
	for _, group := range sepPhonemes {
		for i, symbol := range group {
			if _, ok := f.inventory[symbol]; !ok {
				group[i] = UnknownSymbol
				substitutions++
			}
		}
	}

	phonemes := []Phoneme{{Symbol: Pad}}
	word2ph := []int{1}
	var seqText strings.Builder

	for i, group := range sepPhonemes {
		tones := assignTones(group, accents[i])
		for j, symbol := range group {
			phonemes = append(phonemes, Phoneme{
				Symbol:       symbol,
				Tone:         tones[j],
				WordBoundary: j == 0,
			})
		}

		word2ph = append(word2ph, distributePhone(len(group), runeCount(words[i]))...)
		seqText.WriteString(words[i])
	}

	phonemes = append(phonemes, Phoneme{Symbol: Pad})
	word2ph = append(word2ph, 1)

	return &PhonemeSequence{
		Phonemes:      phonemes,
		Word2Ph:       word2ph,
		SeqText:       seqText.String(),
		Substitutions: substitutions,
	}, nil
}

