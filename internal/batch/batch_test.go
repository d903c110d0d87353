package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/codeshift/internal/tokenizer"
	"github.com/flemzord/codeshift/internal/translate"
	"github.com/flemzord/codeshift/internal/window"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// driver returns a translate.Driver whose collaborator upper-cases lines
// and fails for files named in fail.
func driver(fail ...string) *translate.Driver {
	tr := translate.TranslatorFunc(func(_ context.Context, req translate.Request) (string, error) {
		for _, f := range fail {
			if req.FileName == f {
				return "not json", nil
			}
		}
		out := make([]string, len(req.Current))
		for i, l := range req.Current {
			out[i] = strings.ToUpper(l)
		}
		data, _ := json.Marshal(map[string][]string{"currentChunk": out})
		return string(data), nil
	})
	return translate.NewDriver(tr, translate.Options{
		Window: window.Config{Size: tokenizer.Lines(5), Overlap: tokenizer.Lines(1)},
	})
}

type countRecorder struct {
	mu         sync.Mutex
	statuses   map[string]int
	unbalanced int
}

func (c *countRecorder) RecordFile(status string, unbalanced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.statuses == nil {
		c.statuses = map[string]int{}
	}
	c.statuses[status]++
	if unbalanced {
		c.unbalanced++
	}
}

func setup(t *testing.T) (src, dst string) {
	t.Helper()
	dir := t.TempDir()
	src, dst = filepath.Join(dir, "src"), filepath.Join(dir, "out")
	writeTree(t, src, map[string]string{
		"a.vb":          "module a\nend module\n",
		"sub/b.vb":      "sub b\nend sub\n",
		"sub/deep/c.VB": "c\n",
		"notes.txt":     "ignored\n",
		".git/d.vb":     "hidden\n",
	})
	return src, dst
}

// ---------------------------------------------------------------------------
// Plan
// ---------------------------------------------------------------------------

func TestPlan(t *testing.T) {
	t.Parallel()

	src, dst := setup(t)
	r := NewRunner(driver(), Options{SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs"})

	jobs, err := r.Plan()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	want := []string{"a.vb", "sub/b.vb", "sub/deep/c.VB"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if got := jobs[1].Destination; got != filepath.Join(dst, "sub", "b.cs") {
		t.Errorf("destination = %q", got)
	}
}

func TestPlan_SkipsDestinationInsideSource(t *testing.T) {
	t.Parallel()

	src, _ := setup(t)
	dst := filepath.Join(src, "converted")
	writeTree(t, dst, map[string]string{"old.vb": "x\n"})

	r := NewRunner(driver(), Options{SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".vb"})
	jobs, err := r.Plan()
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range jobs {
		if strings.HasPrefix(j.ID, "converted/") {
			t.Errorf("planned a file from the destination folder: %s", j.ID)
		}
	}
}

func TestPlan_MissingSource(t *testing.T) {
	t.Parallel()

	r := NewRunner(driver(), Options{SourceDir: filepath.Join(t.TempDir(), "nope"), SourceExt: ".vb"})
	if _, err := r.Plan(); err == nil {
		t.Error("expected an error for a missing source folder")
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_TranslatesTree(t *testing.T) {
	t.Parallel()

	src, dst := setup(t)
	rec := &countRecorder{}
	r := NewRunner(driver(), Options{
		SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs",
		Parallelism: 2, Overwrite: true, Recorder: rec,
	})

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.RunID == "" || sum.Finished.Before(sum.Started) {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Count(StatusTranslated) != 3 || sum.Failed() {
		t.Fatalf("results = %+v", sum.Results)
	}

	data, err := os.ReadFile(filepath.Join(dst, "sub", "b.cs"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "SUB B\nEND SUB\n" {
		t.Errorf("b.cs = %q", data)
	}
	if rec.statuses["translated"] != 3 {
		t.Errorf("recorded = %v", rec.statuses)
	}
}

func TestRun_FailureIsIsolated(t *testing.T) {
	t.Parallel()

	src, dst := setup(t)
	r := NewRunner(driver("sub/b.vb"), Options{
		SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs",
		Parallelism: 3, Overwrite: true,
	})

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Count(StatusFailed) != 1 || sum.Count(StatusTranslated) != 2 || !sum.Failed() {
		t.Fatalf("results = %+v", sum.Results)
	}
	failed := sum.Results[1]
	if failed.Status != StatusFailed || !errors.Is(failed.Err, translate.ErrMalformedResponse) || failed.Error == "" {
		t.Errorf("failed result = %+v", failed)
	}
	if _, err := os.Stat(filepath.Join(dst, "a.cs")); err != nil {
		t.Errorf("a.cs missing: %v", err)
	}
}

func TestRun_SkipsExistingWithoutOverwrite(t *testing.T) {
	t.Parallel()

	src, dst := setup(t)
	writeTree(t, dst, map[string]string{"a.cs": "keep me\n"})
	r := NewRunner(driver(), Options{SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs"})

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Results[0].Status != StatusSkipped || sum.Count(StatusTranslated) != 2 {
		t.Errorf("results = %+v", sum.Results)
	}
	data, _ := os.ReadFile(filepath.Join(dst, "a.cs"))
	if string(data) != "keep me\n" {
		t.Errorf("a.cs = %q, want it untouched", data)
	}
}

func TestRun_Canceled(t *testing.T) {
	t.Parallel()

	src, dst := setup(t)
	r := NewRunner(driver(), Options{SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs", Overwrite: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if sum.Count(StatusCanceled) != 3 {
		t.Errorf("results = %+v", sum.Results)
	}
}

func TestRun_VerifyFlagsUnbalancedOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src, dst := filepath.Join(dir, "src"), filepath.Join(dir, "out")
	writeTree(t, src, map[string]string{"a.vb": "class a {\n", "b.vb": "class b { }\n"})

	tr := translate.TranslatorFunc(func(_ context.Context, req translate.Request) (string, error) {
		data, _ := json.Marshal(map[string][]string{"currentChunk": req.Current})
		return string(data), nil
	})
	d := translate.NewDriver(tr, translate.Options{Window: window.Config{Size: tokenizer.Lines(5), Overlap: tokenizer.Lines(1)}})
	rec := &countRecorder{}
	r := NewRunner(d, Options{
		SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs",
		Overwrite: true, Verify: true, Recorder: rec,
	})

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	a, b := sum.Results[0], sum.Results[1]
	if !a.Unbalanced() || a.Balance.Curly != 1 {
		t.Errorf("a balance = %+v", a.Balance)
	}
	if b.Unbalanced() || b.Balance == nil {
		t.Errorf("b balance = %+v", b.Balance)
	}
	if a.Status != StatusTranslated {
		t.Errorf("an unbalanced file must still count as translated, got %s", a.Status)
	}
	if rec.unbalanced != 1 {
		t.Errorf("unbalanced recorded = %d, want 1", rec.unbalanced)
	}
}

func TestRunFile(t *testing.T) {
	t.Parallel()

	src, dst := setup(t)
	r := NewRunner(driver(), Options{SourceDir: src, SourceExt: ".vb", DestDir: dst, DestExt: ".cs", Overwrite: true})

	res, err := r.RunFile(context.Background(), filepath.Join(src, "sub", "b.vb"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Destination != filepath.Join(dst, "sub", "b.cs") || res.Lines != 2 {
		t.Errorf("result = %+v", res)
	}

	outside := filepath.Join(t.TempDir(), "x.vb")
	writeTree(t, filepath.Dir(outside), map[string]string{"x.vb": "x\n"})
	res, err = r.RunFile(context.Background(), outside)
	if err != nil {
		t.Fatal(err)
	}
	if res.Destination != filepath.Join(dst, "x.cs") {
		t.Errorf("destination = %q", res.Destination)
	}
}
