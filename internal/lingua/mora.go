package lingua

// mora maps one katakana mora onto its consonant (possibly empty) and
// vowel phoneme symbols.
type mora struct {
	kana      string
	consonant string
	vowel     string
}

// vowels are the symbols a long-vowel mark may extend. "N" is the
// moraic nasal.
var vowels = map[string]struct{}{
	"a": {}, "i": {}, "u": {}, "e": {}, "o": {}, "N": {},
}

// moraTable is the katakana→phoneme inventory: the plain gojūon plus
// voiced/semi-voiced rows, yōon digraphs, and loanword combinations.
var moraTable = []mora{
	// Digraphs first: lookup happens longest-kana-first.
	{"キャ", "ky", "a"}, {"キュ", "ky", "u"}, {"キェ", "ky", "e"}, {"キョ", "ky", "o"},
	{"ギャ", "gy", "a"}, {"ギュ", "gy", "u"}, {"ギェ", "gy", "e"}, {"ギョ", "gy", "o"},
	{"シャ", "sh", "a"}, {"シュ", "sh", "u"}, {"シェ", "sh", "e"}, {"ショ", "sh", "o"},
	{"ジャ", "j", "a"}, {"ジュ", "j", "u"}, {"ジェ", "j", "e"}, {"ジョ", "j", "o"},
	{"チャ", "ch", "a"}, {"チュ", "ch", "u"}, {"チェ", "ch", "e"}, {"チョ", "ch", "o"},
	{"ニャ", "ny", "a"}, {"ニュ", "ny", "u"}, {"ニェ", "ny", "e"}, {"ニョ", "ny", "o"},
	{"ヒャ", "hy", "a"}, {"ヒュ", "hy", "u"}, {"ヒェ", "hy", "e"}, {"ヒョ", "hy", "o"},
	{"ビャ", "by", "a"}, {"ビュ", "by", "u"}, {"ビェ", "by", "e"}, {"ビョ", "by", "o"},
	{"ピャ", "py", "a"}, {"ピュ", "py", "u"}, {"ピェ", "py", "e"}, {"ピョ", "py", "o"},
	{"ミャ", "my", "a"}, {"ミュ", "my", "u"}, {"ミェ", "my", "e"}, {"ミョ", "my", "o"},
	{"リャ", "ry", "a"}, {"リュ", "ry", "u"}, {"リェ", "ry", "e"}, {"リョ", "ry", "o"},
	{"ファ", "f", "a"}, {"フィ", "f", "i"}, {"フェ", "f", "e"}, {"フォ", "f", "o"}, {"フュ", "fy", "u"},
	{"ウィ", "w", "i"}, {"ウェ", "w", "e"}, {"ウォ", "w", "o"},
	{"ヴァ", "v", "a"}, {"ヴィ", "v", "i"}, {"ヴェ", "v", "e"}, {"ヴォ", "v", "o"},
	{"ティ", "t", "i"}, {"トゥ", "t", "u"}, {"テュ", "ty", "u"},
	{"ディ", "d", "i"}, {"ドゥ", "d", "u"}, {"デュ", "dy", "u"},
	{"ツァ", "ts", "a"}, {"ツィ", "ts", "i"}, {"ツェ", "ts", "e"}, {"ツォ", "ts", "o"},
	{"イェ", "y", "e"}, {"クヮ", "kw", "a"}, {"グヮ", "gw", "a"},

	{"ア", "", "a"}, {"イ", "", "i"}, {"ウ", "", "u"}, {"エ", "", "e"}, {"オ", "", "o"},
	{"カ", "k", "a"}, {"キ", "k", "i"}, {"ク", "k", "u"}, {"ケ", "k", "e"}, {"コ", "k", "o"},
	{"ガ", "g", "a"}, {"ギ", "g", "i"}, {"グ", "g", "u"}, {"ゲ", "g", "e"}, {"ゴ", "g", "o"},
	{"サ", "s", "a"}, {"シ", "sh", "i"}, {"ス", "s", "u"}, {"セ", "s", "e"}, {"ソ", "s", "o"},
	{"ザ", "z", "a"}, {"ジ", "j", "i"}, {"ズ", "z", "u"}, {"ゼ", "z", "e"}, {"ゾ", "z", "o"},
	{"タ", "t", "a"}, {"チ", "ch", "i"}, {"ツ", "ts", "u"}, {"テ", "t", "e"}, {"ト", "t", "o"},
	{"ダ", "d", "a"}, {"ヂ", "j", "i"}, {"ヅ", "z", "u"}, {"デ", "d", "e"}, {"ド", "d", "o"},
	{"ナ", "n", "a"}, {"ニ", "n", "i"}, {"ヌ", "n", "u"}, {"ネ", "n", "e"}, {"ノ", "n", "o"},
	{"ハ", "h", "a"}, {"ヒ", "h", "i"}, {"フ", "f", "u"}, {"ヘ", "h", "e"}, {"ホ", "h", "o"},
	{"バ", "b", "a"}, {"ビ", "b", "i"}, {"ブ", "b", "u"}, {"ベ", "b", "e"}, {"ボ", "b", "o"},
	{"パ", "p", "a"}, {"ピ", "p", "i"}, {"プ", "p", "u"}, {"ペ", "p", "e"}, {"ポ", "p", "o"},
	{"マ", "m", "a"}, {"ミ", "m", "i"}, {"ム", "m", "u"}, {"メ", "m", "e"}, {"モ", "m", "o"},
	{"ヤ", "y", "a"}, {"ユ", "y", "u"}, {"ヨ", "y", "o"},
	{"ラ", "r", "a"}, {"リ", "r", "i"}, {"ル", "r", "u"}, {"レ", "r", "e"}, {"ロ", "r", "o"},
	{"ワ", "w", "a"}, {"ヰ", "", "i"}, {"ヱ", "", "e"}, {"ヲ", "", "o"},
	{"ン", "", "N"}, {"ッ", "", "q"}, {"ヴ", "v", "u"},
	{"ァ", "", "a"}, {"ィ", "", "i"}, {"ゥ", "", "u"}, {"ェ", "", "e"}, {"ォ", "", "o"},
	{"ャ", "y", "a"}, {"ュ", "y", "u"}, {"ョ", "y", "o"},
}

var moraByKana = func() map[string]mora {
	m := make(map[string]mora, len(moraTable))
	for _, entry := range moraTable {
		m[entry.kana] = entry
	}
	return m
}()

func isVowel(symbol string) bool {
	_, ok := vowels[symbol]
	return ok
}
