package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/codeshift/internal/carrier"
	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/internal/window"
)

const tracerName = "github.com/flemzord/codeshift/internal/translate"

// Sink receives the committed lines of one file, in window order.
type Sink interface {
	WriteLines(lines []string) error
}

// RetryPolicy re-sends a rejected window. MaxAttempts of 0 or 1 sends it
// once.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Options configures a Driver.
type Options struct {
	Window         window.Config
	Throttle       *Throttle
	Retry          RetryPolicy
	RequestTimeout time.Duration
	Observer       Observer
	Logger         *slog.Logger
	Tracer         trace.Tracer
}

// Fragment is the committed output of one window.
type Fragment struct {
	Index    int
	Lines    []string
	Attempts int
}

// Result summarizes the translation of one file.
type Result struct {
	File      string
	Windows   int
	Committed int
	Skipped   int
	Lines     int
	Attempts  int
	Duration  time.Duration
}

// Driver runs the per-file translation loop. One Driver serves any number
// of files concurrently; all per-file state lives in Run.
type Driver struct {
	translator Translator
	carrier    carrier.Carrier
	opts       Options
	logger     *slog.Logger
	tracer     trace.Tracer
	observer   Observer
}

// NewDriver returns a driver sending windows to t.
func NewDriver(t Translator, opts Options) *Driver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Driver{
		translator: t,
		carrier:    carrier.New(opts.Window.Overlap),
		opts:       opts,
		logger:     logger.With("component", "translate"),
		tracer:     tracer,
		observer:   observer,
	}
}

// Step translates one window. On success it returns the advanced tail and
// the fragment to commit. When the response carries no current lines it
// returns tail unchanged and an error wrapping ErrEmptyResult. Any other
// error rejects the window and also leaves tail unchanged.
func (d *Driver) Step(ctx context.Context, tail carrier.Tail, w window.Window) (carrier.Tail, Fragment, error) {
	req := BuildRequest(tail, w, d.opts.Window.Overlap)
	out, attempts, err := d.request(ctx, req)
	frag := Fragment{Index: w.Index, Attempts: attempts}
	if err != nil {
		return tail, frag, err
	}
	frag.Lines = []string(out.CurrentChunk)
	return d.carrier.Advance(tail, frag.Lines), frag, nil
}

// Run translates every window read from src into dst. It stops at the
// first rejected window.
func (d *Driver) Run(ctx context.Context, fileID string, src io.Reader, dst Sink) (Result, error) {
	ctx, span := d.tracer.Start(ctx, "translate.file", trace.WithAttributes(attribute.String("file", fileID)))
	defer span.End()

	started := time.Now()
	res := Result{File: fileID}
	err := d.run(ctx, fileID, src, dst, &res)
	res.Duration = time.Since(started)

	span.SetAttributes(
		attribute.Int("windows", res.Windows),
		attribute.Int("lines", res.Lines),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (d *Driver) run(ctx context.Context, fileID string, src io.Reader, dst Sink, res *Result) error {
	engine := window.New(fileID, src, d.opts.Window)
	var tail carrier.Tail

	for {
		w, err := engine.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		res.Windows++

		next, err := d.window(ctx, tail, w, dst, res)
		if err != nil {
			return err
		}
		tail = next

		if !w.Last {
			if err := d.opts.Throttle.Pause(ctx); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrTimeout, fileID, err)
			}
		}
	}
}

// window runs Step for w and commits or skips its fragment.
func (d *Driver) window(ctx context.Context, tail carrier.Tail, w window.Window, dst Sink, res *Result) (carrier.Tail, error) {
	ctx, span := d.tracer.Start(ctx, "translate.window", trace.WithAttributes(
		attribute.String("file", w.FileID),
		attribute.Int("index", w.Index),
		attribute.Int("start", w.Start),
		attribute.Int("lines", len(w.Current)),
	))
	defer span.End()

	started := time.Now()
	next, frag, err := d.Step(ctx, tail, w)
	res.Attempts += frag.Attempts
	ev := WindowEvent{
		File:     w.FileID,
		Index:    w.Index,
		Start:    w.Start,
		End:      w.End(),
		Attempts: frag.Attempts,
		Duration: time.Since(started),
		Err:      err,
	}

	switch {
	case err == nil:
		if werr := dst.WriteLines(frag.Lines); werr != nil {
			err = fmt.Errorf("%w: writing %s: %w", ErrIO, w.FileID, werr)
			ev.State, ev.Err = StateRejected, err
			d.observer.WindowDone(ev)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return tail, err
		}
		res.Committed++
		res.Lines += len(frag.Lines)
		ev.State, ev.Lines = StateCommitted, len(frag.Lines)
		d.observer.WindowDone(ev)
		return next, nil

	case errors.Is(err, ErrEmptyResult):
		d.logger.Warn("window produced no lines, continuing",
			"file", w.FileID, "window", w.Index, "start", w.Start, "end", w.End())
		res.Skipped++
		ev.State, ev.Skipped = StateCommitted, true
		d.observer.WindowDone(ev)
		span.AddEvent("empty result")
		return tail, nil

	default:
		d.logger.Error("window rejected",
			"file", w.FileID, "window", w.Index, "start", w.Start, "end", w.End(),
			"attempts", frag.Attempts, "error", err)
		ev.State = StateRejected
		d.observer.WindowDone(ev)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return tail, fmt.Errorf("window %d of %s (lines %d-%d): %w", w.Index, w.FileID, w.Start+1, w.End(), err)
	}
}

// request sends req, retrying transient failures per the retry policy.
func (d *Driver) request(ctx context.Context, req Request) (Output, int, error) {
	attempts := 0
	op := func() (Output, error) {
		attempts++
		out, err := d.attempt(ctx, req)
		if err == nil || errors.Is(err, ErrEmptyResult) {
			return out, permanent(err)
		}
		if ctx.Err() != nil || !retryable(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}

	if d.opts.Retry.MaxAttempts <= 1 {
		out, err := op()
		return out, attempts, unwrapPermanent(err)
	}

	b := backoff.NewExponentialBackOff()
	if d.opts.Retry.InitialInterval > 0 {
		b.InitialInterval = d.opts.Retry.InitialInterval
	}
	if d.opts.Retry.MaxInterval > 0 {
		b.MaxInterval = d.opts.Retry.MaxInterval
	}
	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.opts.Retry.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			d.logger.Warn("retrying window",
				"file", req.FileName, "attempt", attempts, "wait", wait, "error", err)
		}),
	)
	err = unwrapPermanent(err)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return out, attempts, err
}

// attempt performs a single call and parses its response.
func (d *Driver) attempt(ctx context.Context, req Request) (Output, error) {
	callCtx := ctx
	if d.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.opts.RequestTimeout)
		defer cancel()
	}

	if err := d.opts.Throttle.Admit(callCtx); err != nil {
		return Output{}, fmt.Errorf("%w: waiting for rate limiter: %w", ErrTimeout, err)
	}

	raw, err := d.translator.Translate(callCtx, req)
	if err != nil {
		if callCtx.Err() != nil {
			return Output{}, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return Output{}, fmt.Errorf("collaborator: %w", err)
	}
	return ParseOutput(raw)
}

func retryable(err error) bool {
	return errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, ErrTimeout) ||
		provider.IsRetryable(err)
}

// permanent stops the retry loop for a nil or empty-result outcome.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func unwrapPermanent(err error) error {
	var p *backoff.PermanentError
	if errors.As(err, &p) {
		return p.Unwrap()
	}
	return err
}
