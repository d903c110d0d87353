package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/flemzord/codeshift/internal/batch"
	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/internal/report"
)

// windowFlags override the translate.window and parallelism settings.
type windowFlags struct {
	policy      policyValue
	size        int
	overlap     int
	parallelism int
}

func (w *windowFlags) register(fs *pflag.FlagSet) {
	fs.Var(&w.policy, "policy", "Window policy: lines or tokens")
	fs.IntVar(&w.size, "size", 0, "Window size in lines or tokens")
	fs.IntVar(&w.overlap, "overlap", 0, "Overlap budget in lines or tokens")
	fs.IntVarP(&w.parallelism, "parallelism", "p", 0, "Files translated at once")
}

// apply copies the flags that were set onto cfg. Switching policy without
// a size resets the window to the new policy's defaults.
func (w *windowFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	win := &cfg.Translate.Window
	if fs.Changed("policy") && string(w.policy) != win.Policy {
		win.Policy = string(w.policy)
		if !fs.Changed("size") {
			win.Size = 0
		}
		if !fs.Changed("overlap") {
			win.Overlap = nil
		}
		config.ApplyDefaults(cfg)
	}
	if fs.Changed("size") {
		win.Size = w.size
	}
	if fs.Changed("overlap") {
		win.Overlap = config.Int(w.overlap)
	}
	if fs.Changed("parallelism") {
		cfg.Translate.Parallelism = w.parallelism
	}
	return config.Validate(cfg)
}

func runCmd(g *globalFlags) *cobra.Command {
	var (
		win      windowFlags
		file     string
		asJSON   bool
		noVerify bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Translate every source file once and print a report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			if err := win.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			if noVerify {
				cfg.Translate.Verify = config.Bool(false)
			}

			ctx, stop := signalContext()
			defer stop()

			a, err := g.open(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			var (
				sum    batch.Summary
				runErr error
			)
			if file != "" {
				res, _ := a.Runner.RunFile(ctx, file)
				sum = batch.Summary{RunID: "file", Results: []batch.Result{res}}
			} else {
				sum, runErr = a.Runner.Run(ctx)
			}
			if runErr != nil && len(sum.Results) == 0 {
				return runErr
			}

			if err := printSummary(cmd.OutOrStdout(), sum, asJSON); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}
			if sum.Failed() {
				return errRunFailed
			}
			return nil
		},
	}
	win.register(cmd.Flags())
	cmd.Flags().StringVarP(&file, "file", "f", "", "Translate only this source file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip the bracket balance check")
	return cmd
}

func printSummary(w io.Writer, sum batch.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	return report.Render(w, sum, report.Detect(w))
}

func planCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List the files a run would translate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := g.loadConfig()
			if err != nil {
				return err
			}
			runner := batch.NewRunner(nil, batch.Options{
				SourceDir: cfg.Translate.Source.Folder,
				SourceExt: cfg.Translate.Source.Extension,
				DestDir:   cfg.Translate.Destination.Folder,
				DestExt:   cfg.Translate.Destination.Extension,
			})
			jobs, err := runner.Plan()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, j := range jobs {
				fmt.Fprintf(out, "%s -> %s\n", j.Source, j.Destination)
			}
			fmt.Fprintf(out, "%d files\n", len(jobs))
			return nil
		},
	}
}
