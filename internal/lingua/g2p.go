package lingua

import (
	"strings"
	"unicode/utf8"
)

// longVowelMark extends the preceding vowel by one mora.
const longVowelMark = "ー"

// kataToPhonemeList converts one katakana reading into phoneme
// symbols. Punctuation-only readings pass through one symbol per
// character. Characters outside the mora inventory are substituted
// with the unknown symbol and counted.
func kataToPhonemeList(kata string) (symbols []string, unknown int) {
	if isAllPunctuation(kata) {
		for _, r := range kata {
			symbols = append(symbols, string(r))
		}
		return symbols, 0
	}

	runes := []rune(kata)
	for i := 0; i < len(runes); {
		// Longest match first: yōon and loanword digraphs are two runes.
		if i+1 < len(runes) {
			if entry, ok := moraByKana[string(runes[i:i+2])]; ok {
				if entry.consonant != "" {
					symbols = append(symbols, entry.consonant)
				}
				symbols = append(symbols, entry.vowel)
				i += 2
				continue
			}
		}

		ch := string(runes[i])
		if ch == longVowelMark {
			symbols = append(symbols, longVowelMark)
			i++
			continue
		}
		if entry, ok := moraByKana[ch]; ok {
			if entry.consonant != "" {
				symbols = append(symbols, entry.consonant)
			}
			symbols = append(symbols, entry.vowel)
			i++
			continue
		}
		if IsPunctuation(ch) {
			symbols = append(symbols, ch)
			i++
			continue
		}

		symbols = append(symbols, UnknownSymbol)
		unknown++
		i++
	}

	return symbols, unknown
}

// handleLong resolves long-vowel marks across per-token phoneme
// groups: a leading mark extends the previous token's final vowel, and
// marks inside a group repeat the preceding symbol's last phoneme.
func handleLong(sepPhonemes [][]string) [][]string {
	for i := range sepPhonemes {
		if len(sepPhonemes[i]) == 0 {
			continue
		}

		if sepPhonemes[i][0] == longVowelMark && i > 0 && len(sepPhonemes[i-1]) > 0 {
			prev := sepPhonemes[i-1][len(sepPhonemes[i-1])-1]
			if isVowel(prev) {
				sepPhonemes[i][0] = prev
			}
		}

		for e := range sepPhonemes[i] {
			if sepPhonemes[i][e] == longVowelMark && e > 0 {
				prev := sepPhonemes[i][e-1]
				_, size := utf8.DecodeLastRuneInString(prev)
				sepPhonemes[i][e] = prev[len(prev)-size:]
			}
		}
	}

	return sepPhonemes
}

// distributePhone spreads nPhone phonemes over nWord characters as
// evenly as possible, earliest characters first on ties.
func distributePhone(nPhone, nWord int) []int {
	phonesPerWord := make([]int, nWord)
	for range nPhone {
		minIndex := 0
		for i, count := range phonesPerWord {
			if count < phonesPerWord[minIndex] {
				minIndex = i
			}
		}
		phonesPerWord[minIndex]++
	}
	return phonesPerWord
}

// assignTones produces one pitch level (0 low, 1 high) per phoneme
// from the token's accent type under standard Tokyo-dialect rules:
// heiban starts low and stays high, accent type 1 starts high, accent
// type n drops after the nth mora. Punctuation is level 0.
func assignTones(symbols []string, accentType int) []int {
	moraCount := 0
	for _, s := range symbols {
		if isMoraFinal(s) {
			moraCount++
		}
	}

	level := func(moraIdx int) int {
		switch {
		case moraCount <= 0:
			return 0
		case accentType == 0:
			if moraIdx == 0 && moraCount > 1 {
				return 0
			}
			return 1
		case accentType == 1:
			if moraIdx == 0 {
				return 1
			}
			return 0
		default:
			if moraIdx == 0 {
				return 0
			}
			if moraIdx < accentType {
				return 1
			}
			return 0
		}
	}

	tones := make([]int, len(symbols))
	moraIdx := 0
	for i, s := range symbols {
		if IsPunctuation(s) {
			tones[i] = 0
			continue
		}
		tones[i] = level(moraIdx)
		if isMoraFinal(s) {
			moraIdx++
		}
	}

	return tones
}

// isMoraFinal reports whether a symbol closes a mora: vowels, the
// moraic nasal, and the sokuon.
func isMoraFinal(symbol string) bool {
	return isVowel(symbol) || symbol == "q"
}

func isAllPunctuation(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsPunctuation(string(r)) {
			return false
		}
	}
	return true
}

// Intersperse inserts sep between and around every element, turning
// [a b] into [sep a sep b sep]. The model input convention.
func Intersperse[T any](items []T, sep T) []T {
	out := make([]T, len(items)*2+1)
	for i := range out {
		out[i] = sep
	}
	for i, item := range items {
		out[i*2+1] = item
	}
	return out
}

func isAllKatakana(s string) bool {
	for _, r := range s {
		if r == 'ー' {
			continue
		}
		if r < 0x30A0 || r > 0x30FF {
			return false
		}
	}
	return s != ""
}

func runeCount(s string) int {
	return utf8.RuneCountInString(s)
}

func stripAccentMarks(reading string) string {
	return strings.ReplaceAll(reading, "’", "")
}
