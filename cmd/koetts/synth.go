package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/go-koe-tts/internal/archive"
	"github.com/example/go-koe-tts/internal/audio"
	"github.com/example/go-koe-tts/internal/config"
	"github.com/example/go-koe-tts/internal/lingua"
	"github.com/example/go-koe-tts/internal/onnx"
	"github.com/example/go-koe-tts/internal/style"
	"github.com/example/go-koe-tts/internal/tts"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var text string
	var out string
	var styles []string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to WAV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, os.Stdin)
			if err != nil {
				return err
			}

			selections, err := parseStyleSelections(styles, cfg.Synth.Style)
			if err != nil {
				return err
			}

			arch, err := archive.LoadFile(cfg.Paths.ArchivePath)
			if err != nil {
				return err
			}

			annotator, err := lingua.NewKagomeAnnotator()
			if err != nil {
				return err
			}

			pipeline, err := tts.New(arch, annotator, onnx.RunnerConfig{
				LibraryPath: cfg.Runtime.ORTLibraryPath,
				APIVersion:  cfg.Runtime.ORTAPIVersion,
			})
			if err != nil {
				return err
			}
			defer pipeline.Close()

			waveform, err := pipeline.Synthesize(cmd.Context(), tts.Request{
				Text:        inputText,
				Styles:      selections,
				StyleWeight: float32(cfg.Synth.StyleWeight),
				RateScale:   float32(cfg.Synth.RateScale),
				PitchScale:  float32(cfg.Synth.PitchScale),
				SplitLines:  cfg.Synth.SplitLines,
			})
			if err != nil {
				return err
			}

			samples := applyPostProcessing(waveform, cfg.Synth)

			wavBytes, err := audio.EncodeWAV(samples, waveform.SampleRate)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(wavBytes)
				return err
			}

			return os.WriteFile(out, wavBytes, 0o644)
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Text to synthesize (reads stdin when empty)")
	cmd.Flags().StringVarP(&out, "out", "o", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().StringArrayVar(&styles, "style", nil, "Style selection 'id' or 'id:weight' (repeatable for blends)")

	return cmd
}

func readSynthText(flagText string, stdin io.Reader) (string, error) {
	if flagText != "" {
		return flagText, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input text (pass --text or pipe stdin)")
	}

	return text, nil
}

// parseStyleSelections turns repeated --style flags into selections,
// falling back to the configured default style.
func parseStyleSelections(flags []string, defaultStyle string) ([]style.Selection, error) {
	if len(flags) == 0 {
		if defaultStyle == "" {
			return nil, fmt.Errorf("no style selected (pass --style or set synth.style)")
		}
		return []style.Selection{{ID: defaultStyle, Weight: 1}}, nil
	}

	out := make([]style.Selection, 0, len(flags))
	for _, raw := range flags {
		id, weightStr, found := strings.Cut(raw, ":")
		if id == "" {
			return nil, fmt.Errorf("invalid style selection %q", raw)
		}

		weight := 1.0
		if found {
			var err error
			weight, err = strconv.ParseFloat(weightStr, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid style weight in %q: %w", raw, err)
			}
		}

		out = append(out, style.Selection{ID: id, Weight: float32(weight)})
	}

	return out, nil
}

func applyPostProcessing(w *tts.Waveform, cfg config.SynthConfig) []float32 {
	var hooks []audio.Hook
	if cfg.DCBlock {
		hooks = append(hooks, func(s []float32) []float32 {
			return audio.DCBlock(s, w.SampleRate)
		})
	}
	if cfg.Normalize {
		hooks = append(hooks, audio.PeakNormalize)
	}
	if cfg.FadeInMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 {
			return audio.FadeIn(s, w.SampleRate, cfg.FadeInMS)
		})
	}
	if cfg.FadeOutMS > 0 {
		hooks = append(hooks, func(s []float32) []float32 {
			return audio.FadeOut(s, w.SampleRate, cfg.FadeOutMS)
		})
	}
	return audio.ApplyHooks(w.Samples, hooks...)
}
