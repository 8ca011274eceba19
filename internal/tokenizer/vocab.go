package tokenizer

import "errors"

// Special vocab keys. When absent, the conventional BERT ids are used.
const (
	clsKey = "[CLS]"
	sepKey = "[SEP]"
	unkKey = "[UNK]"
)

const (
	defaultClsID int64 = 1
	defaultSepID int64 = 2
	defaultUnkID int64 = 0
)

// ErrEmptyVocab is returned when NewVocabTokenizer is given no table.
var ErrEmptyVocab = errors.New("tokenizer vocab table must not be empty")

// VocabTokenizer encodes text character by character against a fixed
// character→id table, bracketing the sequence with [CLS]/[SEP]. This
// is the encoding convention of character-level Japanese BERT models.
type VocabTokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
}

// NewVocabTokenizer builds a tokenizer from an archive vocab table.
func NewVocabTokenizer(vocab map[string]int64) (*VocabTokenizer, error) {
	if len(vocab) == 0 {
		return nil, ErrEmptyVocab
	}

	t := &VocabTokenizer{
		vocab: vocab,
		cls:   defaultClsID,
		sep:   defaultSepID,
		unk:   defaultUnkID,
	}
	if id, ok := vocab[clsKey]; ok {
		t.cls = id
	}
	if id, ok := vocab[sepKey]; ok {
		t.sep = id
	}
	if id, ok := vocab[unkKey]; ok {
		t.unk = id
	}

	return t, nil
}

// Encode returns [CLS] + one id per character + [SEP]. Characters
// missing from the table map to the unknown id. Every character token
// spans exactly one rune; the markers span zero.
func (t *VocabTokenizer) Encode(text string) ([]int64, []int, error) {
	if text == "" {
		return []int64{}, []int{}, nil
	}

	ids := make([]int64, 0, len(text)+2)
	spans := make([]int, 0, len(text)+2)
	ids = append(ids, t.cls)
	spans = append(spans, 0)
	for _, r := range text {
		id, ok := t.vocab[string(r)]
		if !ok {
			id = t.unk
		}
		ids = append(ids, id)
		spans = append(spans, 1)
	}
	ids = append(ids, t.sep)
	spans = append(spans, 0)

	return ids, spans, nil
}
