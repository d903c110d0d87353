// Package batch translates every matching file of a source folder into a
// destination folder. Files are independent: a failed file is recorded
// and the others continue. Only cancellation of the context stops a run.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flemzord/codeshift/internal/translate"
	"github.com/flemzord/codeshift/internal/verify"
)

// Status is the outcome of one file.
type Status string

// File statuses.
const (
	StatusTranslated Status = "translated"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusCanceled   Status = "canceled"
)

// Result describes one file of a run.
type Result struct {
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Status      Status          `json:"status"`
	Windows     int             `json:"windows"`
	Committed   int             `json:"committed"`
	Skipped     int             `json:"skipped_windows"`
	Lines       int             `json:"lines"`
	Duration    time.Duration   `json:"duration"`
	Err         error           `json:"-"`
	Error       string          `json:"error,omitempty"`
	Balance     *verify.Balance `json:"balance,omitempty"`
}

// Unbalanced reports whether the output was checked and found unbalanced.
func (r Result) Unbalanced() bool { return r.Balance != nil && !r.Balance.Balanced() }

// Summary describes a whole run.
type Summary struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
}

// Count returns the number of results with status s.
func (s Summary) Count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Failed reports whether any file failed or was canceled.
func (s Summary) Failed() bool {
	return s.Count(StatusFailed) > 0 || s.Count(StatusCanceled) > 0
}

// FileTranslator translates one file. *translate.Driver implements it.
type FileTranslator interface {
	TranslateFile(ctx context.Context, job translate.FileJob) (translate.Result, error)
}

// Recorder receives the outcome of every file.
type Recorder interface {
	RecordFile(status string, unbalanced bool)
}

// Options configures a Runner.
type Options struct {
	SourceDir string
	SourceExt string
	DestDir   string
	DestExt   string

	// Parallelism bounds the number of files translated at once.
	Parallelism int

	// Overwrite replaces existing destinations. When false they are
	// skipped.
	Overwrite bool

	// Verify runs the bracket balance check on every translated file.
	Verify bool

	Recorder Recorder
	Logger   *slog.Logger
}

// Runner plans and executes batch runs.
type Runner struct {
	tr     FileTranslator
	opts   Options
	logger *slog.Logger
}

// NewRunner returns a runner translating files with tr.
func NewRunner(tr FileTranslator, opts Options) *Runner {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{tr: tr, opts: opts, logger: logger.With("component", "batch")}
}

// Plan lists the jobs of a run in lexical order of their source path.
// Hidden directories and the destination folder are not descended into.
func (r *Runner) Plan() ([]translate.FileJob, error) {
	root := filepath.Clean(r.opts.SourceDir)
	dest, _ := filepath.Abs(r.opts.DestDir)

	var jobs []translate.FileJob
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, _ := filepath.Abs(path); path != root && abs == dest {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(path), r.opts.SourceExt) {
			return nil
		}
		jobs = append(jobs, r.job(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scanning %s: %w", root, err)
	}
	return jobs, nil
}

// job maps a source path to its destination.
func (r *Runner) job(path string) translate.FileJob {
	rel, err := filepath.Rel(r.opts.SourceDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(path)
	}
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	return translate.FileJob{
		ID:          filepath.ToSlash(rel),
		Source:      path,
		Destination: filepath.Join(r.opts.DestDir, base+r.opts.DestExt),
	}
}

// Run translates every planned file. The returned error is non-nil only
// when planning failed or ctx was cancelled; per-file failures are in
// the summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	return r.run(ctx, uuid.NewString())
}

func (r *Runner) run(ctx context.Context, id string) (Summary, error) {
	sum := Summary{RunID: id, Started: time.Now()}

	jobs, err := r.Plan()
	if err != nil {
		sum.Finished = time.Now()
		return sum, err
	}

	logger := r.logger.With("run", sum.RunID)
	logger.Info("run started", "files", len(jobs), "parallelism", r.opts.Parallelism)

	sum.Results = r.runJobs(ctx, jobs, logger)
	sum.Finished = time.Now()

	logger.Info("run finished",
		"translated", sum.Count(StatusTranslated),
		"failed", sum.Count(StatusFailed),
		"skipped", sum.Count(StatusSkipped),
		"duration", sum.Finished.Sub(sum.Started),
	)
	return sum, ctx.Err()
}

// RunFile translates a single file, mapped to the destination folder like
// a file found by Plan.
func (r *Runner) RunFile(ctx context.Context, path string) (Result, error) {
	res := r.translate(ctx, r.job(path), r.logger)
	return res, res.Err
}

func (r *Runner) runJobs(ctx context.Context, jobs []translate.FileJob, logger *slog.Logger) []Result {
	results := make([]Result, len(jobs))

	var g errgroup.Group
	g.SetLimit(r.opts.Parallelism)
	for i, job := range jobs {
		if ctx.Err() != nil {
			results[i] = canceled(job, ctx.Err())
			continue
		}
		g.Go(func() error {
			results[i] = r.translate(ctx, job, logger)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runner) translate(ctx context.Context, job translate.FileJob, logger *slog.Logger) Result {
	logger = logger.With("file", job.ID)
	if ctx.Err() != nil {
		return canceled(job, ctx.Err())
	}

	if !r.opts.Overwrite {
		if _, err := os.Stat(job.Destination); err == nil {
			logger.Info("destination exists, skipping", "destination", job.Destination)
			res := Result{Source: job.Source, Destination: job.Destination, Status: StatusSkipped}
			r.record(res)
			return res
		}
	}

	tr, err := r.tr.TranslateFile(ctx, job)
	res := Result{
		Source:      job.Source,
		Destination: job.Destination,
		Status:      StatusTranslated,
		Windows:     tr.Windows,
		Committed:   tr.Committed,
		Skipped:     tr.Skipped,
		Lines:       tr.Lines,
		Duration:    tr.Duration,
	}
	if err != nil {
		res.Status, res.Err, res.Error = StatusFailed, err, err.Error()
		if ctx.Err() != nil {
			res.Status = StatusCanceled
		}
		logger.Error("file failed", "error", err)
		r.record(res)
		return res
	}

	if r.opts.Verify {
		r.verify(&res, logger)
	}
	r.record(res)
	return res
}

func (r *Runner) verify(res *Result, logger *slog.Logger) {
	b, ok, err := verify.CheckFile(res.Destination)
	switch {
	case err != nil:
		logger.Warn("balance check failed", "error", err)
	case !ok:
		logger.Debug("no lexer for destination, balance not checked")
	default:
		res.Balance = &b
		if !b.Balanced() {
			logger.Warn("translated file looks unbalanced", "balance", b.String(), "lexer", b.Lexer)
		}
	}
}

func (r *Runner) record(res Result) {
	if r.opts.Recorder != nil {
		r.opts.Recorder.RecordFile(string(res.Status), res.Unbalanced())
	}
}

func canceled(job translate.FileJob, err error) Result {
	return Result{
		Source:      job.Source,
		Destination: job.Destination,
		Status:      StatusCanceled,
		Err:         err,
		Error:       err.Error(),
	}
}
