package main

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/example/go-koe-tts/internal/config"
	"github.com/example/go-koe-tts/internal/style"
	"github.com/example/go-koe-tts/internal/tts"
)

func TestParseStyleSelections(t *testing.T) {
	tests := []struct {
		name         string
		flags        []string
		defaultStyle string
		want         []style.Selection
		wantErr      bool
	}{
		{
			name:         "no flags falls back to default",
			defaultStyle: "neutral",
			want:         []style.Selection{{ID: "neutral", Weight: 1}},
		},
		{
			name:    "no flags and no default",
			wantErr: true,
		},
		{
			name:         "bare id gets weight one",
			flags:        []string{"happy"},
			defaultStyle: "neutral",
			want:         []style.Selection{{ID: "happy", Weight: 1}},
		},
		{
			name:  "id with weight",
			flags: []string{"happy:0.7"},
			want:  []style.Selection{{ID: "happy", Weight: 0.7}},
		},
		{
			name:  "multiple selections blend",
			flags: []string{"happy:2", "sad:1"},
			want: []style.Selection{
				{ID: "happy", Weight: 2},
				{ID: "sad", Weight: 1},
			},
		},
		{
			name:    "empty id",
			flags:   []string{":0.5"},
			wantErr: true,
		},
		{
			name:    "unparseable weight",
			flags:   []string{"happy:heavy"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStyleSelections(tt.flags, tt.defaultStyle)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseStyleSelections() error = nil; want error")
				}

				return
			}
			if err != nil {
				t.Fatalf("parseStyleSelections() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseStyleSelections() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestApplyPostProcessing(t *testing.T) {
	// 100 samples at 1 kHz with a constant offset, so every stage is
	// observable: the offset decays under the DC blocker, the peak rises
	// to one under normalization, and the ramps pin the edges near zero.
	samples := make([]float32, 100)
	for i := range samples {
		samples[i] = 0.5
	}
	w := &tts.Waveform{Samples: samples, SampleRate: 1000}

	t.Run("no options passes samples through", func(t *testing.T) {
		got := applyPostProcessing(w, config.SynthConfig{})
		if !reflect.DeepEqual(got, samples) {
			t.Error("applyPostProcessing() altered samples with no options set")
		}
	})

	t.Run("dc block removes the offset", func(t *testing.T) {
		got := applyPostProcessing(w, config.SynthConfig{DCBlock: true})
		if len(got) != len(samples) {
			t.Fatalf("len = %d; want %d", len(got), len(samples))
		}
		var mean float64
		for _, s := range got {
			mean += float64(s)
		}
		mean /= float64(len(got))
		if math.Abs(mean) >= 0.25 {
			t.Errorf("mean after DC block = %v; want magnitude below 0.25", mean)
		}
	})

	t.Run("normalize raises the peak to one", func(t *testing.T) {
		got := applyPostProcessing(w, config.SynthConfig{Normalize: true})
		if got[0] != 1 {
			t.Errorf("normalized sample = %v; want 1", got[0])
		}
	})

	t.Run("fade in ramps from silence", func(t *testing.T) {
		got := applyPostProcessing(w, config.SynthConfig{FadeInMS: 10})
		if got[0] != 0 {
			t.Errorf("first sample = %v; want 0", got[0])
		}
		if got[5] >= got[9] {
			t.Errorf("ramp not increasing: sample 5 = %v, sample 9 = %v", got[5], got[9])
		}
		if got[len(got)-1] != 0.5 {
			t.Errorf("last sample = %v; want 0.5", got[len(got)-1])
		}
	})

	t.Run("fade out ramps to silence", func(t *testing.T) {
		got := applyPostProcessing(w, config.SynthConfig{FadeOutMS: 10})
		if got[len(got)-1] != 0 {
			t.Errorf("last sample = %v; want 0", got[len(got)-1])
		}
		if got[0] != 0.5 {
			t.Errorf("first sample = %v; want 0.5", got[0])
		}
	})
}

func TestReadSynthText(t *testing.T) {
	got, err := readSynthText("flag text", strings.NewReader("ignored"))
	if err != nil {
		t.Fatalf("readSynthText() error = %v", err)
	}
	if got != "flag text" {
		t.Errorf("readSynthText() = %q; want %q", got, "flag text")
	}

	got, err = readSynthText("", strings.NewReader("  piped text\n"))
	if err != nil {
		t.Fatalf("readSynthText() error = %v", err)
	}
	if got != "piped text" {
		t.Errorf("readSynthText() = %q; want %q", got, "piped text")
	}

	if _, err := readSynthText("", strings.NewReader("  \n")); err == nil {
		t.Error("readSynthText() error = nil; want error for empty input")
	}
}
