package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/codeshift/internal/carrier"
	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/internal/tokenizer"
	"github.com/flemzord/codeshift/internal/translate"
	"github.com/flemzord/codeshift/internal/window"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func sourceLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %03d", i)
	}
	return lines
}

func upper(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ToUpper(l)
	}
	return out
}

func respond(lines []string) string {
	data, _ := json.Marshal(map[string][]string{"currentChunk": lines})
	return string(data)
}

// recorder answers requests with reply and records them.
type recorder struct {
	mu    sync.Mutex
	reqs  []translate.Request
	reply func(n int, req translate.Request) (string, error)
}

func (r *recorder) Translate(_ context.Context, req translate.Request) (string, error) {
	r.mu.Lock()
	n := len(r.reqs)
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	return r.reply(n, req)
}

func (r *recorder) requests() []translate.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.reqs)
}

// echo translates by upper-casing the current lines.
func echo() *recorder {
	return &recorder{reply: func(_ int, req translate.Request) (string, error) {
		return respond(upper(req.Current)), nil
	}}
}

type memSink struct{ lines []string }

func (m *memSink) WriteLines(lines []string) error {
	m.lines = append(m.lines, lines...)
	return nil
}

type failingSink struct{}

func (failingSink) WriteLines([]string) error { return errors.New("disk full") }

func linesConfig(n, k int) window.Config {
	return window.Config{Size: tokenizer.Lines(n), Overlap: tokenizer.Lines(k)}
}

func run(t *testing.T, d *translate.Driver, lines []string) (translate.Result, []string, error) {
	t.Helper()
	sink := &memSink{}
	src := strings.NewReader("")
	if len(lines) > 0 {
		src = strings.NewReader(strings.Join(lines, "\n") + "\n")
	}
	res, err := d.Run(context.Background(), "a.vb", src, sink)
	return res, sink.lines, err
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_TranslatesWindowsInOrder(t *testing.T) {
	t.Parallel()

	src := sourceLines(120)
	tr := echo()
	d := translate.NewDriver(tr, translate.Options{Window: linesConfig(50, 10)})

	res, out, err := run(t, d, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(out, upper(src)) {
		t.Fatalf("output has %d lines, want the 120 translated lines in order", len(out))
	}
	if res.Windows != 3 || res.Committed != 3 || res.Lines != 120 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}

	reqs := tr.requests()
	if len(reqs) != 3 {
		t.Fatalf("requests = %d, want 3", len(reqs))
	}
	if len(reqs[0].PrevConverted) != 0 || len(reqs[0].PrevSource) != 0 {
		t.Errorf("first request carries context: %+v", reqs[0])
	}
	if !slices.Equal(reqs[0].NextSource, src[50:60]) {
		t.Errorf("first NextSource = %q", reqs[0].NextSource)
	}
	if !slices.Equal(reqs[1].PrevSource, src[40:50]) {
		t.Errorf("second PrevSource = %q", reqs[1].PrevSource)
	}
	if !slices.Equal(reqs[1].PrevConverted, upper(src[40:50])) {
		t.Errorf("second PrevConverted = %q", reqs[1].PrevConverted)
	}
	if !slices.Equal(reqs[2].Current, src[100:120]) || len(reqs[2].NextSource) != 0 || !reqs[2].Last {
		t.Errorf("last request = %+v", reqs[2])
	}
}

func TestRun_EmptyInput(t *testing.T) {
	t.Parallel()

	tr := echo()
	d := translate.NewDriver(tr, translate.Options{Window: linesConfig(50, 10)})

	res, out, err := run(t, d, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 0 || res.Windows != 0 || len(tr.requests()) != 0 {
		t.Errorf("empty input produced output %q, result %+v", out, res)
	}
}

func TestRun_EmptyResultKeepsTail(t *testing.T) {
	t.Parallel()

	src := sourceLines(30)
	tr := &recorder{reply: func(n int, req translate.Request) (string, error) {
		if n == 1 {
			return `{"currentChunk": null}`, nil
		}
		return respond(upper(req.Current)), nil
	}}
	d := translate.NewDriver(tr, translate.Options{Window: linesConfig(10, 3)})

	res, out, err := run(t, d, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := append(upper(src[0:10]), upper(src[20:30])...)
	if !slices.Equal(out, want) {
		t.Errorf("output = %q, want %q", out, want)
	}
	if res.Skipped != 1 || res.Committed != 2 {
		t.Errorf("result = %+v", res)
	}

	reqs := tr.requests()
	if !slices.Equal(reqs[2].PrevConverted, upper(src[7:10])) {
		t.Errorf("third PrevConverted = %q, want the tail of the first window", reqs[2].PrevConverted)
	}
}

func TestRun_MalformedResponseFailsFile(t *testing.T) {
	t.Parallel()

	src := sourceLines(30)
	tr := &recorder{reply: func(n int, req translate.Request) (string, error) {
		if n == 1 {
			return "sorry, I can't help with that", nil
		}
		return respond(upper(req.Current)), nil
	}}
	d := translate.NewDriver(tr, translate.Options{Window: linesConfig(10, 3)})

	res, out, err := run(t, d, src)
	if !errors.Is(err, translate.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if !slices.Equal(out, upper(src[0:10])) {
		t.Errorf("output = %q, want only the first window", out)
	}
	if got := len(tr.requests()); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if res.Committed != 1 {
		t.Errorf("Committed = %d, want 1", res.Committed)
	}
}

func TestRun_RetryRecovers(t *testing.T) {
	t.Parallel()

	src := sourceLines(20)
	tr := &recorder{reply: func(n int, req translate.Request) (string, error) {
		if n == 0 {
			return "{", nil
		}
		return respond(upper(req.Current)), nil
	}}
	d := translate.NewDriver(tr, translate.Options{
		Window: linesConfig(10, 2),
		Retry:  translate.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})

	res, out, err := run(t, d, src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !slices.Equal(out, upper(src)) {
		t.Errorf("output = %q", out)
	}
	if res.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", res.Attempts)
	}
	reqs := tr.requests()
	if !slices.Equal(reqs[0].Current, reqs[1].Current) {
		t.Error("retry did not resend the same window")
	}
}

func TestRun_RetryableProviderError(t *testing.T) {
	t.Parallel()

	src := sourceLines(5)
	tr := &recorder{reply: func(n int, req translate.Request) (string, error) {
		if n < 2 {
			return "", provider.ErrRateLimit
		}
		return respond(upper(req.Current)), nil
	}}
	d := translate.NewDriver(tr, translate.Options{
		Window: linesConfig(10, 2),
		Retry:  translate.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})

	if _, _, err := run(t, d, src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(tr.requests()); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestRun_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	tr := &recorder{reply: func(int, translate.Request) (string, error) {
		return "", errors.New("invalid api key")
	}}
	d := translate.NewDriver(tr, translate.Options{
		Window: linesConfig(10, 2),
		Retry:  translate.RetryPolicy{MaxAttempts: 5, InitialInterval: time.Millisecond},
	})

	_, _, err := run(t, d, sourceLines(5))
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("error = %v", err)
	}
	if got := len(tr.requests()); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
}

func TestRun_RequestTimeout(t *testing.T) {
	t.Parallel()

	blocking := translate.TranslatorFunc(func(ctx context.Context, req translate.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	d := translate.NewDriver(blocking, translate.Options{
		Window:         linesConfig(10, 2),
		RequestTimeout: 10 * time.Millisecond,
	})

	_, out, err := run(t, d, sourceLines(5))
	if !errors.Is(err, translate.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if len(out) != 0 {
		t.Errorf("output = %q, want nothing committed", out)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	tr := echo()
	d := translate.NewDriver(tr, translate.Options{Window: linesConfig(10, 2)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, "a.vb", strings.NewReader("x\ny\n"), &memSink{})
	if !errors.Is(err, translate.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if got := len(tr.requests()); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

func TestRun_SinkFailure(t *testing.T) {
	t.Parallel()

	d := translate.NewDriver(echo(), translate.Options{Window: linesConfig(10, 2)})
	_, err := d.Run(context.Background(), "a.vb", strings.NewReader("x\n"), failingSink{})
	if !errors.Is(err, translate.ErrIO) {
		t.Fatalf("error = %v, want ErrIO", err)
	}
}

func TestRun_DelayBetweenWindows(t *testing.T) {
	t.Parallel()

	d := translate.NewDriver(echo(), translate.Options{
		Window:   linesConfig(5, 1),
		Throttle: translate.NewThrottle(20*time.Millisecond, nil),
	})

	started := time.Now()
	if _, _, err := run(t, d, sourceLines(15)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Three windows, two pauses.
	if elapsed := time.Since(started); elapsed < 40*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 40ms", elapsed)
	}
}

func TestRun_ConcurrentFilesAreIndependent(t *testing.T) {
	t.Parallel()

	d := translate.NewDriver(echo(), translate.Options{Window: linesConfig(7, 2)})

	var wg sync.WaitGroup
	outputs := make([][]string, 8)
	errs := make([]error, 8)
	for i := range outputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink := &memSink{}
			src := sourceLines(10 + i*5)
			_, errs[i] = d.Run(context.Background(), fmt.Sprintf("f%d", i), strings.NewReader(strings.Join(src, "\n")), sink)
			outputs[i] = sink.lines
		}()
	}
	wg.Wait()

	for i := range outputs {
		if errs[i] != nil {
			t.Fatalf("file %d: %v", i, errs[i])
		}
		if want := upper(sourceLines(10 + i*5)); !slices.Equal(outputs[i], want) {
			t.Errorf("file %d output mismatch", i)
		}
	}
}

// ---------------------------------------------------------------------------
// Step
// ---------------------------------------------------------------------------

func TestStep_TailOnlyAdvancesOnCommit(t *testing.T) {
	t.Parallel()

	tail := carrier.New(tokenizer.Lines(2)).Advance(carrier.Tail{}, []string{"A", "B"})
	w := window.Window{FileID: "f", Index: 1, Start: 2, Current: []string{"c", "d", "e"}}

	tests := []struct {
		name     string
		reply    string
		wantTail []string
		wantErr  error
	}{
		{name: "commit", reply: respond([]string{"C", "D", "E"}), wantTail: []string{"D", "E"}},
		{name: "empty result", reply: `{"currentChunk": []}`, wantTail: []string{"A", "B"}, wantErr: translate.ErrEmptyResult},
		{name: "malformed", reply: "nope", wantTail: []string{"A", "B"}, wantErr: translate.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := translate.TranslatorFunc(func(context.Context, translate.Request) (string, error) { return tt.reply, nil })
			d := translate.NewDriver(tr, translate.Options{Window: linesConfig(5, 2)})

			next, frag, err := d.Step(context.Background(), tail, w)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Step: %v", err)
			}
			if !slices.Equal(next.Lines(), tt.wantTail) {
				t.Errorf("tail = %q, want %q", next.Lines(), tt.wantTail)
			}
			if !slices.Equal(tail.Lines(), []string{"A", "B"}) {
				t.Errorf("input tail mutated: %q", tail.Lines())
			}
			if tt.wantErr == nil && len(frag.Lines) != 3 {
				t.Errorf("fragment = %q", frag.Lines)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Observer
// ---------------------------------------------------------------------------

type eventLog struct {
	mu      sync.Mutex
	windows []translate.WindowEvent
}

func (e *eventLog) FileStarted(translate.FileEvent) {}
func (e *eventLog) FileDone(translate.FileEvent)    {}
func (e *eventLog) WindowDone(ev translate.WindowEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.windows = append(e.windows, ev)
}

func TestRun_ObserverSeesEveryWindow(t *testing.T) {
	t.Parallel()

	tr := &recorder{reply: func(n int, req translate.Request) (string, error) {
		switch n {
		case 1:
			return `{"currentChunk": null}`, nil
		case 2:
			return "garbage", nil
		}
		return respond(upper(req.Current)), nil
	}}
	log := &eventLog{}
	d := translate.NewDriver(tr, translate.Options{
		Window:   linesConfig(4, 1),
		Observer: translate.Observers(nil, log),
	})

	_, _, _ = run(t, d, sourceLines(16))

	if len(log.windows) != 3 {
		t.Fatalf("events = %d, want 3", len(log.windows))
	}
	if ev := log.windows[0]; ev.State != translate.StateCommitted || ev.Lines != 4 || ev.Start != 0 || ev.End != 4 {
		t.Errorf("first event = %+v", ev)
	}
	if ev := log.windows[1]; !ev.Skipped || ev.Lines != 0 {
		t.Errorf("second event = %+v", ev)
	}
	if ev := log.windows[2]; ev.State != translate.StateRejected || !errors.Is(ev.Err, translate.ErrMalformedResponse) {
		t.Errorf("third event = %+v", ev)
	}
}
