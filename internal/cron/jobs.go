package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/codeshift/internal/batch"
)

// Runs is the part of batch.Manager a TranslateJob needs.
type Runs interface {
	Start(ctx context.Context, trigger string) (batch.Run, error)
	Get(id string) (batch.Run, bool)
	Wait()
}

// TranslateJob starts a batch run on every tick and waits for it. A tick
// that finds a run already in progress, started by hand or by a previous
// tick, is skipped.
type TranslateJob struct {
	Runs         Runs
	ScheduleExpr string
	Logger       *slog.Logger
}

var _ Job = (*TranslateJob)(nil)

// Name implements Job.
func (j *TranslateJob) Name() string { return "translate" }

// Schedule implements Job.
func (j *TranslateJob) Schedule() string { return j.ScheduleExpr }

// Run implements Job. It fails when the run had failed or canceled files.
func (j *TranslateJob) Run(ctx context.Context) error {
	run, err := j.Runs.Start(ctx, "schedule")
	if errors.Is(err, batch.ErrRunInProgress) {
		j.logger().Info("cron: run in progress, skipping scheduled run")
		return nil
	}
	if err != nil {
		return err
	}

	j.Runs.Wait()
	done, ok := j.Runs.Get(run.ID)
	if !ok {
		return nil
	}
	switch done.State {
	case batch.RunFailed, batch.RunCanceled:
		var failed int
		if done.Summary != nil {
			failed = done.Summary.Count(batch.StatusFailed) + done.Summary.Count(batch.StatusCanceled)
		}
		if done.Error != "" {
			return fmt.Errorf("run %s %s: %s", run.ID, done.State, done.Error)
		}
		return fmt.Errorf("run %s %s with %d failed files", run.ID, done.State, failed)
	}
	j.logger().Info("cron: scheduled run finished", "run", run.ID)
	return nil
}

func (j *TranslateJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return j.Logger
}
