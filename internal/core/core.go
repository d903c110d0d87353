package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of loaded modules.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger
}

type moduleInstance struct {
	id      ModuleID
	module  Module
	started bool
	stopped bool
}

// NewApp creates an App bound to ctx.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// Context returns the AppContext modules were provisioned with.
func (a *App) Context() *AppContext { return a.ctx }

// LoadModules loads the given module IDs in order. On failure the modules
// already loaded are stopped and discarded.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.cleanup()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		info := mod.ModuleInfo()
		a.modules = append(a.modules, moduleInstance{id: info.ID, module: mod})
		a.logger.Debug("module loaded", "module", string(info.ID))
	}
	return nil
}

// Module returns the loaded instance with the given ID.
func (a *App) Module(id ModuleID) (Module, bool) {
	for _, mi := range a.modules {
		if mi.id == id {
			return mi.module, true
		}
	}
	return nil, false
}

// Start starts every loaded Starter in load order. If one fails, those
// already started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			a.stopModules(i - 1)
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.started = true
	}
	return nil
}

// Stop stops started modules in reverse order, then releases the
// resources of modules that were loaded but never started.
func (a *App) Stop() {
	a.stopModules(len(a.modules) - 1)
	a.cleanup()
}

func (a *App) stopModules(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.started {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			a.logger.Info("stopping module", "module", string(mi.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(mi.id), "error", err)
			}
		}
		mi.started = false
		mi.stopped = true
	}
}

// cleanup calls Stop on modules that hold resources from Provision but
// were never started (a database handle, for example).
func (a *App) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(a.modules) - 1; i >= 0; i-- {
		mi := &a.modules[i]
		if mi.started || mi.stopped {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			_ = s.Stop(ctx)
		}
	}
	a.modules = nil
}

// Run starts all modules and blocks until ctx is cancelled, then stops
// them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(ctx))
	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
