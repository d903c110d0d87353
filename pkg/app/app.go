// Package app wires configuration, modules and the translation pipeline
// into a runnable application shared by every codeshift command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/flemzord/codeshift/internal/batch"
	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/gateway"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/internal/telemetry"
	"github.com/flemzord/codeshift/internal/translate"
	cachesqlite "github.com/flemzord/codeshift/modules/cache/sqlite"
)

// Options configures New.
type Options struct {
	// DataDir holds persistent state such as the response cache. Defaults
	// to DefaultDataDir().
	DataDir string

	// Version is reported to the tracing backend.
	Version string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// App is a loaded configuration with its modules provisioned and the
// translation pipeline built on top of them.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Core       *core.App
	Chain      *provider.Chain
	Translator translate.Translator
	Driver     *translate.Driver
	Runner     *batch.Runner
	Runs       *batch.Manager

	// Metrics is nil when telemetry.metrics is disabled.
	Metrics *telemetry.Metrics

	shutdownTracing telemetry.ShutdownFunc
}

// LoadConfig reads and validates the configuration at path. An empty path
// is resolved with ResolveConfigPath.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// New provisions the modules named by cfg and builds the pipeline. The
// caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	redactor := logging.NewRedactor()
	logger := logging.New(out, level, cfg.Log.Format, redactor)

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(logging.ServiceName, redactor)

	a := &App{
		Config:          cfg,
		Logger:          logger,
		Core:            core.NewApp(appCtx),
		shutdownTracing: func(context.Context) error { return nil },
	}
	if config.Enabled(cfg.Telemetry.Metrics) {
		a.Metrics = telemetry.NewMetrics()
		appCtx.RegisterService(gateway.ServiceMetrics, a.Metrics)
	}

	shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing, opts.Version)
	if err != nil {
		return nil, err
	}
	a.shutdownTracing = shutdown

	if err := a.Core.LoadModules(config.Resolve(cfg)); err != nil {
		_ = a.shutdownTracing(ctx)
		return nil, err
	}
	if err := a.wire(appCtx); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	return a, nil
}

// Close stops every module, the provider health probes and the tracer
// provider.
func (a *App) Close(ctx context.Context) error {
	a.Core.Stop()
	if a.Chain != nil {
		a.Chain.Stop()
	}
	if err := a.shutdownTracing(ctx); err != nil {
		return fmt.Errorf("app: flushing traces: %w", err)
	}
	return nil
}

// wire builds the provider chain, translator, driver and runner, and
// publishes the chain and run manager for the gateway.
func (a *App) wire(appCtx *core.AppContext) error {
	t := &a.Config.Translate

	chain, primary, err := buildChain(a.Core, a.Config.Providers, a.Logger)
	if err != nil {
		return err
	}
	a.Chain = chain
	appCtx.RegisterService(gateway.ServiceChain, chain)

	est, err := newEstimator(t.Tokenizer)
	if err != nil {
		return err
	}

	llm, err := translate.NewLLMTranslator(chain, translate.LLMConfig{
		SourceLanguage: language(t.Source),
		TargetLanguage: language(t.Destination),
		Temperature:    *t.Temperature,
		Stream:         config.Enabled(t.Stream),
		ContextWindow:  primary.ContextWindowSize(),
		Estimator:      est,
		Logger:         a.Logger,
	})
	if err != nil {
		return err
	}
	a.Translator = llm
	if store, err := core.ServiceAs[*cachesqlite.Store](appCtx, cachesqlite.ServiceName); err == nil {
		a.Translator = store.Wrap(llm, llm.Model(), llm.SystemPrompt(), a.Logger)
	}

	var observers []translate.Observer
	if a.Metrics != nil {
		observers = append(observers, a.Metrics)
	}
	if hub, err := core.ServiceAs[*gateway.Hub](appCtx, gateway.ServiceEvents); err == nil {
		observers = append(observers, hub)
	}

	a.Driver = translate.NewDriver(a.Translator, translate.Options{
		Window:   windowConfig(t.Window, est),
		Throttle: translate.NewThrottle(t.Delay, translate.NewLimiter(t.RequestsPerMinute)),
		Retry: translate.RetryPolicy{
			MaxAttempts:     t.Retry.MaxAttempts,
			InitialInterval: t.Retry.InitialInterval,
			MaxInterval:     t.Retry.MaxInterval,
		},
		RequestTimeout: t.RequestTimeout,
		Observer:       translate.Observers(observers...),
		Logger:         a.Logger,
	})

	runOpts := batch.Options{
		SourceDir:   t.Source.Folder,
		SourceExt:   t.Source.Extension,
		DestDir:     t.Destination.Folder,
		DestExt:     t.Destination.Extension,
		Parallelism: t.Parallelism,
		Overwrite:   config.Enabled(t.Overwrite),
		Verify:      config.Enabled(t.Verify),
		Logger:      a.Logger,
	}
	if a.Metrics != nil {
		runOpts.Recorder = a.Metrics
	}
	a.Runner = batch.NewRunner(a.Driver, runOpts)
	a.Runs = batch.NewManager(a.Runner, 0, a.Logger)
	appCtx.RegisterService(gateway.ServiceRuns, a.Runs)
	return nil
}
