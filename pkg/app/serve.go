package app

import (
	"context"
	"fmt"

	"github.com/flemzord/codeshift/internal/cron"
)

// Serve starts the modules (the gateway among them), the provider health
// probes and, when a schedule is configured, the cron scheduler. It blocks
// until ctx is done, then stops everything in reverse order. Close must
// still be called.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Core.Start(); err != nil {
		return err
	}
	a.Chain.Start(ctx)

	var sched *cron.Scheduler
	if a.Config.Schedule != "" {
		sched = cron.NewScheduler(a.Logger.With("component", "cron"))
		job := &cron.TranslateJob{Runs: a.Runs, ScheduleExpr: a.Config.Schedule, Logger: a.Logger}
		if err := sched.RegisterJob(job); err != nil {
			a.Core.Stop()
			return fmt.Errorf("app: %w", err)
		}
		if err := sched.Start(); err != nil {
			a.Core.Stop()
			return fmt.Errorf("app: %w", err)
		}
	}

	a.Logger.Info("codeshift serving", "schedule", a.Config.Schedule)
	<-ctx.Done()
	a.Logger.Info("shutdown requested", "cause", context.Cause(ctx))

	if sched != nil {
		_ = sched.Stop(context.Background())
	}
	a.Core.Stop()
	a.Runs.Wait()
	a.Logger.Info("shutdown complete")
	return nil
}
