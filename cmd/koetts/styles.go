package main

import (
	"fmt"
	"sort"

	"github.com/example/go-koe-tts/internal/archive"
	"github.com/spf13/cobra"
)

func newStylesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List style ids in the model archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			arch, err := archive.LoadFile(cfg.Paths.ArchivePath)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(arch.Metadata().Styles))
			for id := range arch.Metadata().Styles {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}

			return nil
		},
	}

	return cmd
}
