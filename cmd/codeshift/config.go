package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/flemzord/codeshift/internal/config"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration and provision its modules",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				g.configPath = args[0]
			}
			cfg, path, err := g.loadConfig()
			if err != nil {
				return err
			}

			a, err := g.open(cmd.Context(), cfg, io.Discard)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			ids := config.Resolve(cfg)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK: %s (%d modules)\n", path, len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}
