package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned by Manager.Start while another run is
// active.
var ErrRunInProgress = errors.New("a run is already in progress")

// RunState is the lifecycle state of a managed run.
type RunState string

// Run states.
const (
	RunRunning  RunState = "running"
	RunFinished RunState = "finished"
	RunFailed   RunState = "failed"
	RunCanceled RunState = "canceled"
)

// Run describes one managed run.
type Run struct {
	ID       string    `json:"id"`
	Trigger  string    `json:"trigger"`
	State    RunState  `json:"state"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished,omitzero"`
	Error    string    `json:"error,omitempty"`
	Summary  *Summary  `json:"summary,omitempty"`
}

// Manager runs a Runner in the background, one run at a time, and keeps
// the most recent runs for inspection. It serves both the HTTP API and the
// scheduler, so a scheduled tick never overlaps a run started by hand.
type Manager struct {
	runner  *Runner
	logger  *slog.Logger
	history int

	mu     sync.Mutex
	runs   []*Run // oldest first
	active *Run
	wg     sync.WaitGroup
}

// NewManager returns a Manager keeping up to history finished runs.
func NewManager(r *Runner, history int, logger *slog.Logger) *Manager {
	if history <= 0 {
		history = 20
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{runner: r, history: history, logger: logger}
}

// Start launches a run under ctx and returns immediately.
func (m *Manager) Start(ctx context.Context, trigger string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return Run{}, ErrRunInProgress
	}
	run := &Run{ID: uuid.NewString(), Trigger: trigger, State: RunRunning, Started: time.Now()}
	m.active = run
	m.runs = append(m.runs, run)
	if over := len(m.runs) - m.history; over > 0 {
		m.runs = m.runs[over:]
	}

	m.wg.Add(1)
	go m.execute(ctx, run)
	return *run, nil
}

func (m *Manager) execute(ctx context.Context, run *Run) {
	defer m.wg.Done()

	sum, err := m.runner.run(ctx, run.ID)

	m.mu.Lock()
	defer m.mu.Unlock()
	run.Finished = time.Now()
	run.Summary = &sum
	switch {
	case ctx.Err() != nil:
		run.State = RunCanceled
	case err != nil || sum.Failed():
		run.State = RunFailed
	default:
		run.State = RunFinished
	}
	if err != nil {
		run.Error = err.Error()
	}
	m.active = nil
	m.logger.Info("managed run done", "run", run.ID, "trigger", run.Trigger, "state", run.State)
}

// Get returns a copy of the run with the given ID.
func (m *Manager) Get(id string) (Run, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return *r, true
		}
	}
	return Run{}, false
}

// List returns copies of the kept runs, newest first.
func (m *Manager) List() []Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Run, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		out = append(out, *m.runs[i])
	}
	return out
}

// Active reports whether a run is in progress.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Wait blocks until every started run has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
