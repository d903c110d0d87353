package translate

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/flemzord/codeshift/internal/sink"
)

// FileJob names one source file and its destination.
type FileJob struct {
	// ID identifies the file in requests and logs, usually the path
	// relative to the source folder.
	ID          string
	Source      string
	Destination string
}

// TranslateFile translates job.Source into job.Destination. The
// destination is replaced only when every window succeeded; otherwise
// the lines committed so far are left beside it with sink.PartialSuffix.
func (d *Driver) TranslateFile(ctx context.Context, job FileJob) (Result, error) {
	d.observer.FileStarted(FileEvent{File: job.ID, Destination: job.Destination})

	res, err := d.translateFile(ctx, job)
	d.observer.FileDone(FileEvent{File: job.ID, Destination: job.Destination, Result: res, Err: err})
	return res, err
}

func (d *Driver) translateFile(ctx context.Context, job FileJob) (Result, error) {
	res := Result{File: job.ID}

	src, err := os.Open(job.Source)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer src.Close()

	out, err := sink.Create(job.Destination)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrIO, err)
	}

	res, err = d.Run(ctx, job.ID, src, out)
	if err != nil {
		if aerr := out.Abort(); aerr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrIO, aerr))
		}
		return res, err
	}
	if err := out.Commit(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrIO, err)
	}
	d.logger.Info("file translated",
		"file", job.ID,
		"destination", job.Destination,
		"windows", res.Windows,
		"lines", res.Lines,
		"skipped", res.Skipped,
		"duration", res.Duration,
	)
	return res, nil
}
