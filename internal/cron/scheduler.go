package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/codeshift/internal/config"
)

// Status is a point-in-time view of one registered job.
type Status struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next,omitzero"`
	Prev     time.Time `json:"prev,omitzero"`
	Running  bool      `json:"running"`
	Skipped  int       `json:"skipped"`
	LastErr  string    `json:"last_error,omitempty"`
}

type entry struct {
	job     Job
	id      cron.EntryID
	lock    sync.Mutex // held while the job runs
	running bool
	skipped int
	lastErr error
}

// Scheduler executes registered jobs. A tick that fires while the same job
// is still running is skipped, never queued.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries []*entry
	names   map[string]struct{}
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{names: make(map[string]struct{}), logger: logger}
}

// ValidateSchedule parses expr with the scheduler's parser.
func ValidateSchedule(expr string) error {
	_, err := config.CronParser.Parse(expr)
	return err
}

// RegisterJob adds j. Duplicate names and unparsable schedules fail here
// rather than at Start.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := j.Name()
	if _, exists := s.names[name]; exists {
		return fmt.Errorf("cron: duplicate job name %q", name)
	}
	if err := ValidateSchedule(j.Schedule()); err != nil {
		return fmt.Errorf("cron: invalid schedule for job %q: %w", name, err)
	}
	s.names[name] = struct{}{}
	s.entries = append(s.entries, &entry{job: j})
	return nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.cron = cron.New(cron.WithParser(config.CronParser))

	for _, e := range s.entries {
		id, err := s.cron.AddFunc(e.job.Schedule(), func() { s.tick(ctx, e) })
		if err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", e.job.Name(), err)
		}
		e.id = id
	}

	s.cron.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.entries))
	return nil
}

// RunNow runs the named job immediately, subject to the same overlap rule
// as scheduled ticks. It reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	var target *entry
	for _, e := range s.entries {
		if e.job.Name() == name {
			target = e
		}
	}
	s.mu.Unlock()
	if target == nil {
		return false, fmt.Errorf("cron: unknown job %q", name)
	}
	return s.run(ctx, target)
}

func (s *Scheduler) tick(ctx context.Context, e *entry) {
	_, _ = s.run(ctx, e)
}

func (s *Scheduler) run(ctx context.Context, e *entry) (bool, error) {
	name := e.job.Name()
	if !e.lock.TryLock() {
		s.mu.Lock()
		e.skipped++
		s.mu.Unlock()
		s.logger.Warn("cron: job still running, skipping tick", "job", name)
		return false, nil
	}
	defer e.lock.Unlock()

	s.setRunning(e, true, nil)
	s.logger.Debug("cron: job started", "job", name)
	err := e.job.Run(ctx)
	s.setRunning(e, false, err)
	if err != nil {
		s.logger.Error("cron: job failed", "job", name, "error", err)
	} else {
		s.logger.Debug("cron: job completed", "job", name)
	}
	return true, err
}

func (s *Scheduler) setRunning(e *entry, running bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.running = running
	if !running {
		e.lastErr = err
	}
}

// Jobs reports the state of every registered job in registration order.
func (s *Scheduler) Jobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, len(s.entries))
	for i, e := range s.entries {
		st := Status{Name: e.job.Name(), Schedule: e.job.Schedule(), Running: e.running, Skipped: e.skipped}
		if e.lastErr != nil {
			st.LastErr = e.lastErr.Error()
		}
		if s.cron != nil && e.id != 0 {
			ce := s.cron.Entry(e.id)
			st.Next, st.Prev = ce.Next, ce.Prev
		}
		out[i] = st
	}
	return out
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop(_ context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
		s.logger.Info("cron: scheduler stopped")
	}
	return nil
}
