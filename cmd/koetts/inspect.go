package main

import (
	"fmt"

	"github.com/example/go-koe-tts/internal/archive"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a model archive and print its contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			arch, err := archive.LoadFile(cfg.Paths.ArchivePath)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			meta := arch.Metadata()

			fmt.Fprintf(w, "format version: %d\n", meta.FormatVersion)
			fmt.Fprintf(w, "sample rate:    %d Hz\n", meta.SampleRate)
			fmt.Fprintf(w, "hop length:     %d\n", meta.HopLength)
			fmt.Fprintf(w, "embedding:      %d wide\n", meta.EmbeddingWidth)
			fmt.Fprintf(w, "latents:        %d channels\n", meta.LatentChannels)
			fmt.Fprintf(w, "phonemes:       %d symbols\n", len(meta.Phonemes))
			fmt.Fprintf(w, "styles:         %d (dim %d)\n", len(meta.Styles), meta.StyleDim())
			fmt.Fprintf(w, "tokenizer:      %s\n", meta.Tokenizer)
			fmt.Fprintln(w, "entries:")
			for _, e := range arch.Entries() {
				fmt.Fprintf(w, "  %-24s %d bytes\n", e.Name, e.Size)
			}

			return nil
		},
	}

	return cmd
}
