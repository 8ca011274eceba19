// Package tokenizer encodes text into the subword ids the contextual
// encoder consumes. The archive metadata selects the implementation.
package tokenizer

// Tokenizer encodes text into model token IDs, including the
// classifier/separator markers the encoder graph expects.
type Tokenizer interface {
	// Encode tokenizes text and returns token IDs alongside the number
	// of runes of text each token covers. Marker tokens ([CLS]/[SEP])
	// cover zero runes; the remaining spans sum to the rune count of
	// text, which is what lets token embeddings be mapped back onto
	// per-character phoneme distributions. Empty text yields empty
	// slices.
	Encode(text string) (ids []int64, spans []int, err error)
}
