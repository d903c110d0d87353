package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/internal/reload"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway and scheduled translations until interrupted",
		Long: `Run the gateway and scheduled translations until interrupted.

Editing the configuration file or sending SIGHUP restarts every component
with the new configuration. An invalid change is logged and ignored.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()
			return g.serve(ctx)
		},
	}
}

// serve blocks until ctx is done. It backs both `serve` and the system
// service.
func (g *globalFlags) serve(ctx context.Context) error {
	cfg, path, err := g.loadConfig()
	if err != nil {
		return err
	}
	for cfg != nil {
		cfg, err = g.serveUntilReload(ctx, cfg, path)
		if err != nil {
			return err
		}
	}
	return nil
}

// serveUntilReload serves cfg until ctx is done, returning nil, or until a
// valid new configuration appears at path, returning it.
func (g *globalFlags) serveUntilReload(ctx context.Context, cfg *config.Config, path string) (*config.Config, error) {
	a, err := g.open(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close(context.Background()) }()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := reload.NewWatcher(path, 0)
	w.Start(runCtx)
	defer w.Stop()

	next := make(chan *config.Config, 1)
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case ev := <-w.Events():
				changed, err := g.loadConfigAt(path)
				if err != nil {
					a.Logger.Error("configuration change rejected", "source", ev.Source, "error", err)
					continue
				}
				a.Logger.Info("configuration changed, restarting", "source", ev.Source, "path", path)
				next <- changed
				cancel()
				return
			}
		}
	}()

	if err := a.Serve(runCtx); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, nil
	}
	select {
	case changed := <-next:
		return changed, nil
	default:
		return nil, nil
	}
}
