// Package cron runs jobs on five-field cron schedules. The serve command
// uses it to start batch runs periodically.
package cron

import "context"

// Job is a periodic task.
type Job interface {
	// Name identifies the job in logs and must be unique per scheduler.
	Name() string

	// Schedule returns a five-field cron expression such as "0 2 * * *".
	Schedule() string

	// Run executes one tick. It should return when ctx is done.
	Run(ctx context.Context) error
}
