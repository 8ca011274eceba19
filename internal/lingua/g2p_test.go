package lingua

import (
	"reflect"
	"testing"
)

func TestKataToPhonemeList(t *testing.T) {
	tests := []struct {
		name        string
		kata        string
		want        []string
		wantUnknown int
	}{
		{
			name: "plain gojuon",
			kata: "コンニチハ",
			want: []string{"k", "o", "N", "n", "i", "ch", "i", "h", "a"},
		},
		{
			name: "yoon digraph",
			kata: "キャク",
			want: []string{"ky", "a", "k", "u"},
		},
		{
			name: "loanword digraph",
			kata: "ファン",
			want: []string{"f", "a", "N"},
		},
		{
			name: "sokuon",
			kata: "ガッコウ",
			want: []string{"g", "a", "q", "k", "o", "u"},
		},
		{
			name: "long vowel mark kept verbatim",
			kata: "コーヒー",
			want: []string{"k", "o", "ー", "h", "i", "ー"},
		},
		{
			name: "punctuation-only reading passes through",
			kata: ",.",
			want: []string{",", "."},
		},
		{
			name:        "unmapped character substitutes",
			kata:        "カ漢",
			want:        []string{"k", "a", UnknownSymbol},
			wantUnknown: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := kataToPhonemeList(tt.kata)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("kataToPhonemeList(%q) = %v; want %v", tt.kata, got, tt.want)
			}
			if unknown != tt.wantUnknown {
				t.Errorf("unknown = %d; want %d", unknown, tt.wantUnknown)
			}
		})
	}
}

func TestHandleLong(t *testing.T) {
	tests := []struct {
		name  string
		input [][]string
		want  [][]string
	}{
		{
			name:  "internal mark repeats previous vowel",
			input: [][]string{{"k", "o", "ー", "h", "i", "ー"}},
			want:  [][]string{{"k", "o", "o", "h", "i", "i"}},
		},
		{
			name:  "leading mark extends previous group",
			input: [][]string{{"k", "a"}, {"ー", "m", "e"}},
			want:  [][]string{{"k", "a"}, {"a", "m", "e"}},
		},
		{
			name:  "leading mark with no vowel before stays put",
			input: [][]string{{"ー", "m", "e"}},
			want:  [][]string{{"ー", "m", "e"}},
		},
		{
			name:  "empty group is skipped",
			input: [][]string{{}, {"a"}},
			want:  [][]string{{}, {"a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := handleLong(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("handleLong() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestDistributePhone(t *testing.T) {
	tests := []struct {
		name   string
		nPhone int
		nWord  int
		want   []int
	}{
		{name: "even split", nPhone: 4, nWord: 2, want: []int{2, 2}},
		{name: "remainder goes to earliest", nPhone: 5, nWord: 2, want: []int{3, 2}},
		{name: "fewer phones than words", nPhone: 2, nWord: 3, want: []int{1, 1, 0}},
		{name: "single word takes all", nPhone: 7, nWord: 1, want: []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := distributePhone(tt.nPhone, tt.nWord)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("distributePhone(%d, %d) = %v; want %v", tt.nPhone, tt.nWord, got, tt.want)
			}

			sum := 0
			for _, n := range got {
				sum += n
			}
			if sum != tt.nPhone {
				t.Errorf("distribution sums to %d; want %d", sum, tt.nPhone)
			}
		})
	}
}

func TestAssignTones(t *testing.T) {
	tests := []struct {
		name       string
		symbols    []string
		accentType int
		want       []int
	}{
		{
			// Heiban: low first mora, high afterwards.
			name:       "heiban",
			symbols:    []string{"k", "o", "N", "n", "i", "ch", "i", "h", "a"},
			accentType: 0,
			want:       []int{0, 0, 1, 1, 1, 1, 1, 1, 1},
		},
		{
			// Atamadaka: high first mora, low afterwards.
			name:       "accent type one",
			symbols:    []string{"h", "a", "sh", "i"},
			accentType: 1,
			want:       []int{1, 1, 0, 0},
		},
		{
			// Accent on the second mora: low, high, then low after the fall.
			name:       "accent type two of three moras",
			symbols:    []string{"k", "o", "k", "o", "r", "o"},
			accentType: 2,
			want:       []int{0, 0, 1, 1, 0, 0},
		},
		{
			name:       "punctuation stays level zero",
			symbols:    []string{"h", "a", ","},
			accentType: 1,
			want:       []int{1, 1, 0},
		},
		{
			name:       "sokuon counts as a mora",
			symbols:    []string{"g", "a", "q", "k", "o"},
			accentType: 0,
			want:       []int{0, 0, 1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assignTones(tt.symbols, tt.accentType)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("assignTones(%v, %d) = %v; want %v", tt.symbols, tt.accentType, got, tt.want)
			}
		})
	}
}

func TestIntersperse(t *testing.T) {
	got := Intersperse([]string{"a", "b"}, "_")
	want := []string{"_", "a", "_", "b", "_"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Intersperse() = %v; want %v", got, want)
	}

	empty := Intersperse(nil, 0)
	if !reflect.DeepEqual(empty, []int{0}) {
		t.Errorf("Intersperse(nil) = %v; want [0]", empty)
	}
}
