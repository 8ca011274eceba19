package archive

import (
	"encoding/json"
	"fmt"
)

// Tokenizer kinds declared by archive metadata.
const (
	TokenizerVocab         = "vocab"
	TokenizerSentencePiece = "sentencepiece"
)

// PadSymbol is the phoneme the model reserves at table index 0. Input
// sequences are interspersed with it.
const PadSymbol = "_"

// Metadata is the archive's key-value blob parsed eagerly into a fixed
// record at load time, so no stage ever sees the raw JSON.
type Metadata struct {
	FormatVersion  int                  `json:"format_version"`
	SampleRate     int                  `json:"sample_rate"`
	HopLength      int                  `json:"hop_length"`
	EmbeddingWidth int                  `json:"embedding_width"`
	LatentChannels int                  `json:"latent_channels"`
	Phonemes       []string             `json:"phonemes"`
	Vocab          map[string]int64     `json:"vocab"`
	Styles         map[string][]float32 `json:"styles"`
	Tokenizer      string               `json:"tokenizer"`
	SPModelEntry   string               `json:"sentencepiece_model"`
}

// supportedFormatVersion is the only version tag this loader accepts.
const supportedFormatVersion = 1

func parseMetadata(raw []byte) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, &MetadataError{Reason: "not valid JSON", Err: err}
	}

	if meta.Tokenizer == "" {
		meta.Tokenizer = TokenizerVocab
	}

	if err := meta.validate(); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (m *Metadata) validate() error {
	if m.FormatVersion != supportedFormatVersion {
		return &MetadataError{
			Reason: fmt.Sprintf("unsupported format_version %d (want %d)", m.FormatVersion, supportedFormatVersion),
		}
	}

	for _, check := range []struct {
		name  string
		value int
	}{
		{"sample_rate", m.SampleRate},
		{"hop_length", m.HopLength},
		{"embedding_width", m.EmbeddingWidth},
		{"latent_channels", m.LatentChannels},
	} {
		if check.value < 1 {
			return &MetadataError{Reason: fmt.Sprintf("%s must be a positive integer, got %d", check.name, check.value)}
		}
	}

	if len(m.Phonemes) == 0 {
		return &MetadataError{Reason: "phoneme table is empty"}
	}
	if m.Phonemes[0] != PadSymbol {
		return &MetadataError{Reason: fmt.Sprintf("phoneme table must start with pad symbol %q, got %q", PadSymbol, m.Phonemes[0])}
	}

	seen := make(map[string]struct{}, len(m.Phonemes))
	for _, p := range m.Phonemes {
		if p == "" {
			return &MetadataError{Reason: "phoneme table contains empty symbol"}
		}
		if _, dup := seen[p]; dup {
			return &MetadataError{Reason: fmt.Sprintf("duplicate phoneme symbol %q", p)}
		}
		seen[p] = struct{}{}
	}

	if len(m.Styles) == 0 {
		return &MetadataError{Reason: "style table is empty"}
	}

	dim := -1
	for id, vec := range m.Styles {
		if len(vec) == 0 {
			return &MetadataError{Reason: fmt.Sprintf("style %q has empty vector", id)}
		}
		if dim == -1 {
			dim = len(vec)
			continue
		}
		if len(vec) != dim {
			return &MetadataError{
				Reason: fmt.Sprintf("style %q has dimension %d, other styles have %d", id, len(vec), dim),
			}
		}
	}

	switch m.Tokenizer {
	case TokenizerVocab:
		if len(m.Vocab) == 0 {
			return &MetadataError{Reason: "tokenizer is \"vocab\" but vocab table is empty"}
		}
	case TokenizerSentencePiece:
		if m.SPModelEntry == "" {
			return &MetadataError{Reason: "tokenizer is \"sentencepiece\" but sentencepiece_model entry is not named"}
		}
	default:
		return &MetadataError{Reason: fmt.Sprintf("unknown tokenizer kind %q", m.Tokenizer)}
	}

	return nil
}

// StyleDim returns the dimension shared by every style vector.
func (m *Metadata) StyleDim() int {
	for _, vec := range m.Styles {
		return len(vec)
	}
	return 0
}

// PhonemeID returns the table index of a phoneme symbol.
func (m *Metadata) PhonemeID(symbol string) (int64, bool) {
	for i, p := range m.Phonemes {
		if p == symbol {
			return int64(i), true
		}
	}
	return 0, false
}
