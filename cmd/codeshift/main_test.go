package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/flemzord/codeshift/internal/batch"
	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/internal/translate"
)

// ----------------------------------------------------------------------------
// helpers
// ----------------------------------------------------------------------------

// ollamaEcho answers /api/chat with the window's lines upper-cased.
func ollamaEcho(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var in translate.Request
		if err := json.Unmarshal([]byte(body.Messages[len(body.Messages)-1].Content), &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lines := make([]string, len(in.Current))
		for i, l := range in.Current {
			lines[i] = strings.ToUpper(l)
		}
		content, _ := json.Marshal(translate.Output{CurrentChunk: lines})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":     map[string]string{"role": "assistant", "content": string(content)},
			"done":        true,
			"done_reason": "stop",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type project struct {
	dir    string
	src    string
	out    string
	config string
}

func newProject(t *testing.T, baseURL string) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		dir:    dir,
		src:    filepath.Join(dir, "src"),
		out:    filepath.Join(dir, "out"),
		config: filepath.Join(dir, "codeshift.yaml"),
	}
	if err := os.MkdirAll(p.src, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(p.src, "a.vb"), []byte("Dim a\nDim b\nDim c\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw := fmt.Sprintf(`version: "1"
log:
  level: error
translate:
  source: {folder: %q, extension: .vb}
  destination: {folder: %q, extension: .cs}
  window: {policy: lines, size: 2, overlap: 1}
  delay: 1ms
  stream: false
providers:
  - module: provider.ollama
modules:
  provider.ollama:
    base_url: %q
    model: test-model
`, p.src, p.out, baseURL)
	if err := os.WriteFile(p.config, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr:\n%s", logs.String())
	}
	return out.String(), err
}

// ----------------------------------------------------------------------------
// commands
// ----------------------------------------------------------------------------

func TestVersion_ListsModules(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	for _, want := range []string{"codeshift dev", "provider.ollama", "provider.openai", "provider.anthropic", "cache.sqlite", "gateway.http"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()

	p := newProject(t, "http://127.0.0.1:1")
	out, err := execute(t, "config", "check", p.config, "--data-dir", p.dir)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "provider.ollama") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("version: \"1\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	p := newProject(t, "http://127.0.0.1:1")
	out, err := execute(t, "plan", "--config", p.config)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(out, filepath.Join(p.out, "a.cs")) || !strings.Contains(out, "1 files") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_TranslatesThroughOllama(t *testing.T) {
	t.Parallel()

	srv := ollamaEcho(t)
	p := newProject(t, srv.URL)

	out, err := execute(t, "run", "--config", p.config, "--data-dir", p.dir)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 translated") {
		t.Errorf("report is missing the totals:\n%s", out)
	}

	got, err := os.ReadFile(filepath.Join(p.out, "a.cs"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(got), "DIM A") || !strings.Contains(string(got), "DIM C") {
		t.Errorf("output = %q", got)
	}
}

func TestRun_JSONSummary(t *testing.T) {
	t.Parallel()

	srv := ollamaEcho(t)
	p := newProject(t, srv.URL)

	out, err := execute(t, "run", "--config", p.config, "--data-dir", p.dir, "--json", "--policy", "tokens", "--size", "200", "--overlap", "20")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	var sum batch.Summary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if len(sum.Results) != 1 || sum.Results[0].Status != batch.StatusTranslated {
		t.Errorf("results = %+v", sum.Results)
	}
}

func TestRun_FailureExitCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such model", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	p := newProject(t, srv.URL)

	out, err := execute(t, "run", "--config", p.config, "--data-dir", p.dir)
	if !errors.Is(err, errRunFailed) {
		t.Fatalf("err = %v, want errRunFailed\n%s", err, out)
	}
	if !strings.Contains(out, "1 failed") {
		t.Errorf("report is missing the failure:\n%s", out)
	}
}

// ----------------------------------------------------------------------------
// flags
// ----------------------------------------------------------------------------

func TestPolicyValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantErr bool
	}{
		{"lines", false},
		{"tokens", false},
		{"words", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			var p policyValue
			err := p.Set(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && p.String() != tt.in {
				t.Errorf("String() = %q, want %q", p.String(), tt.in)
			}
			if p.Type() != "policy" {
				t.Errorf("Type() = %q", p.Type())
			}
		})
	}
}

func TestWindowFlags_Apply(t *testing.T) {
	t.Parallel()

	base := func() *config.Config {
		cfg, err := config.Parse([]byte(`version: "1"
translate:
  source: {folder: src, extension: .vb}
  destination: {folder: out, extension: .cs}
providers:
  - module: provider.ollama
`))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name        string
		args        []string
		wantPolicy  string
		wantSize    int
		wantOverlap int
		wantErr     bool
	}{
		{"no flags", nil, config.PolicyTokens, config.DefaultTokenWindow, config.DefaultTokenOverlap, false},
		{"switch policy", []string{"--policy", "lines"}, config.PolicyLines, config.DefaultLineWindow, config.DefaultLineOverlap, false},
		{"explicit sizes", []string{"--policy", "lines", "--size", "30", "--overlap", "0"}, config.PolicyLines, 30, 0, false},
		{"overlap above size", []string{"--policy", "lines", "--size", "5", "--overlap", "6"}, "", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var w windowFlags
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			w.register(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse: %v", err)
			}

			cfg := base()
			err := w.apply(fs, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			win := cfg.Translate.Window
			if win.Policy != tt.wantPolicy || win.Size != tt.wantSize || win.OverlapSize() != tt.wantOverlap {
				t.Errorf("window = %s/%d/%d, want %s/%d/%d",
					win.Policy, win.Size, win.OverlapSize(), tt.wantPolicy, tt.wantSize, tt.wantOverlap)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// init
// ----------------------------------------------------------------------------

func TestRenderConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	raw, err := renderConfig(initAnswers{
		SourceFolder: "./legacy",
		SourceExt:    ".vb",
		DestFolder:   "./ported",
		DestExt:      ".cs",
		Policy:       config.PolicyLines,
		Provider:     "openai",
		Cache:        true,
	})
	if err != nil {
		t.Fatalf("renderConfig: %v", err)
	}
	if !strings.Contains(string(raw), "${OPENAI_API_KEY}") {
		t.Errorf("api key should reference the environment:\n%s", raw)
	}

	cfg, err := config.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v\n%s", err, raw)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Validate: %v\n%s", err, raw)
	}
	if cfg.Translate.Source.Folder != "./legacy" || cfg.Translate.Destination.Extension != ".cs" {
		t.Errorf("translate = %+v", cfg.Translate)
	}
	if cfg.Translate.Window.Policy != config.PolicyLines || cfg.Translate.Window.Size != config.DefaultLineWindow {
		t.Errorf("window = %+v", cfg.Translate.Window)
	}
	if len(cfg.Providers) != 1 || cfg.Providers[0].Module != "provider.openai" {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if _, ok := cfg.Modules["cache.sqlite"]; !ok {
		t.Error("cache.sqlite should be configured")
	}
}

func TestRenderConfig_DefaultModel(t *testing.T) {
	t.Parallel()

	raw, err := renderConfig(initAnswers{Provider: "ollama", Policy: config.PolicyTokens})
	if err != nil {
		t.Fatalf("renderConfig: %v", err)
	}
	if !strings.Contains(string(raw), "model: llama3.1") {
		t.Errorf("missing default model:\n%s", raw)
	}
	if strings.Contains(string(raw), "api_key") {
		t.Errorf("ollama needs no api key:\n%s", raw)
	}
}

func TestInitValidators(t *testing.T) {
	t.Parallel()

	if notEmpty(" ") == nil || notEmpty("src") != nil {
		t.Error("notEmpty")
	}
	if isExtension("vb") == nil || isExtension(".") == nil || isExtension(".vb") != nil {
		t.Error("isExtension")
	}
}

func TestServiceConfig(t *testing.T) {
	t.Parallel()

	g := &globalFlags{configPath: "codeshift.yaml", dataDir: "data"}
	cfg, err := serviceConfig(g)
	if err != nil {
		t.Fatalf("serviceConfig: %v", err)
	}
	if cfg.Name != "codeshift" {
		t.Errorf("name = %q", cfg.Name)
	}
	args := strings.Join(cfg.Arguments, " ")
	if !strings.HasPrefix(args, "service run --config /") || !strings.Contains(args, "--data-dir /") {
		t.Errorf("arguments = %q, want absolute paths", args)
	}
}
