// Package main is the entry point for the codeshift CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errRunFailed makes the process exit non-zero after a run whose report
// has already been printed.
var errRunFailed = errors.New("one or more files failed")

func main() {
	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	dataDir    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "codeshift",
		Short:         "Translate source trees between programming languages with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Persistent data directory (default $XDG_DATA_HOME/codeshift)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		versionCmd(),
		runCmd(g),
		planCmd(g),
		configCmd(g),
		initCmd(),
		serveCmd(g),
		mcpCmd(g),
		serviceCmd(g),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "codeshift %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

// loadConfig resolves, loads and validates the configuration, then
// applies the global overrides.
func (g *globalFlags) loadConfig() (*config.Config, string, error) {
	cfg, path, err := app.LoadConfig(g.configPath)
	if err != nil {
		return nil, path, err
	}
	if err := g.override(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// loadConfigAt reloads the configuration from a path resolved earlier.
func (g *globalFlags) loadConfigAt(path string) (*config.Config, error) {
	cfg, _, err := app.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := g.override(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *globalFlags) override(cfg *config.Config) error {
	if g.logLevel == "" {
		return nil
	}
	cfg.Log.Level = g.logLevel
	return config.Validate(cfg)
}

// open builds the application for cfg. Logs go to logs, stderr when nil.
func (g *globalFlags) open(ctx context.Context, cfg *config.Config, logs io.Writer) (*app.App, error) {
	if logs == nil {
		logs = os.Stderr
	}
	return app.New(ctx, cfg, app.Options{
		DataDir:   g.dataDir,
		Version:   version,
		LogOutput: logs,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
