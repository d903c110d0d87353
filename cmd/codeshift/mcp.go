package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/codeshift/internal/mcpserver"
)

func mcpCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve translation tools over the Model Context Protocol on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			a, err := g.open(cmd.Context(), cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			return mcpserver.New(a.Runner, version, a.Logger.With("component", "mcp")).ServeStdio()
		},
	}
}
