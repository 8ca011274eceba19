package lingua

import (
	"strings"
)

// Punctuations is the punctuation inventory the models were trained
// with. Every other symbol is folded onto it or dropped during
// normalization.
var Punctuations = []string{"!", "?", "…", ",", ".", "'", "-"}

var punctuationSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Punctuations))
	for _, p := range Punctuations {
		m[p] = struct{}{}
	}
	return m
}()

// IsPunctuation reports whether symbol belongs to the model's
// punctuation inventory.
func IsPunctuation(symbol string) bool {
	_, ok := punctuationSet[symbol]
	return ok
}

var punctuationFold = map[rune]string{
	'、': ",", '，': ",", '・': ",",
	'。': ".", '．': ".",
	'！': "!", '!': "!",
	'？': "?", '?': "?",
	'…': "…", '‥': "…",
	'ー': "ー", // long-vowel mark survives normalization untouched
	'「': "'", '」': "'", '『': "'", '』': "'",
	'"': "'", '“': "'", '”': "'", '\'': "'", '’': "'", '‘': "'",
	'—': "-", '–': "-", '−': "-", '-': "-", '〜': "-", '~': "-",
	'：': ",", ':': ",", '；': ",", ';': ",",
	'（': "'", '）': "'", '(': "'", ')': "'",
}

var fullwidthDigits = map[rune]rune{
	'０': '0', '１': '1', '２': '2', '３': '3', '４': '4',
	'５': '5', '６': '6', '７': '7', '８': '8', '９': '9',
}

// Normalize prepares raw text for analysis: full-width digits to
// ASCII, digit runs spelled out as Japanese number words, punctuation
// folded onto the model inventory, whitespace removed.
func Normalize(text string) string {
	var sb strings.Builder

	var digits []rune
	flushDigits := func() {
		if len(digits) == 0 {
			return
		}
		sb.WriteString(numberToWords(string(digits)))
		digits = digits[:0]
	}

	for _, r := range text {
		if d, ok := fullwidthDigits[r]; ok {
			r = d
		}
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
			continue
		}
		flushDigits()

		switch {
		case r == ' ' || r == '\t' || r == '　':
			// whitespace carries no phonetic content in Japanese
		case r == '\r':
		default:
			if folded, ok := punctuationFold[r]; ok {
				sb.WriteString(folded)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	flushDigits()

	return sb.String()
}

// ReplacePunctuation folds a surface form's punctuation onto the model
// inventory, dropping characters with no mapping and no reading.
func ReplacePunctuation(surface string) string {
	var sb strings.Builder
	for _, r := range surface {
		if folded, ok := punctuationFold[r]; ok {
			sb.WriteString(folded)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var digitWords = []string{"零", "一", "二", "三", "四", "五", "六", "七", "八", "九"}

var smallUnits = []string{"", "十", "百", "千"}

var bigUnits = []string{"", "万", "億", "兆"}

// numberToWords converts a run of ASCII digits into Japanese number
// words, so the morphological analyzer sees readable text. Runs longer
// than the supported magnitude are spelled digit by digit.
func numberToWords(digits string) string {
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return digitWords[0]
	}
	if len(digits) > 4*len(bigUnits) {
		var sb strings.Builder
		for _, r := range digits {
			sb.WriteString(digitWords[r-'0'])
		}
		return sb.String()
	}

	// Split into 4-digit groups from the right.
	var groups []string
	for len(digits) > 4 {
		groups = append([]string{digits[len(digits)-4:]}, groups...)
		digits = digits[:len(digits)-4]
	}
	groups = append([]string{digits}, groups...)

	var sb strings.Builder
	for gi, group := range groups {
		unit := bigUnits[len(groups)-1-gi]
		part := groupToWords(group)
		if part == "" {
			continue
		}
		sb.WriteString(part)
		sb.WriteString(unit)
	}
	return sb.String()
}

func groupToWords(group string) string {
	var sb strings.Builder
	n := len(group)
	for i, r := range group {
		d := int(r - '0')
		if d == 0 {
			continue
		}
		place := n - i - 1
		if d != 1 || place == 0 {
			sb.WriteString(digitWords[d])
		}
		sb.WriteString(smallUnits[place])
	}
	return sb.String()
}
