package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("CODESHIFT_TEST_KEY", "sk-test")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "set variable", input: "key: ${CODESHIFT_TEST_KEY}", want: "key: sk-test"},
		{name: "default used", input: "dir: ${CODESHIFT_UNSET_VAR:-./out}", want: "dir: ./out"},
		{name: "env wins over default", input: "key: ${CODESHIFT_TEST_KEY:-x}", want: "key: sk-test"},
		{name: "empty default", input: "v: ${CODESHIFT_UNSET_VAR:-}", want: "v: "},
		{name: "unresolved", input: "v: ${CODESHIFT_UNSET_VAR}", wantErr: true},
		{name: "no variables", input: "plain: text", want: "plain: text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnv([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expandEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codeshift.yaml")
	data := `version: "1"
translate:
  source: {folder: src, extension: .vb}
  destination: {folder: out, extension: .cs}
  window: {policy: lines}
  delay: 250ms
providers:
  - module: provider.openai
  - module: provider.anthropic
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	w := cfg.Translate.Window
	if w.Size != DefaultLineWindow || w.OverlapSize() != DefaultLineOverlap {
		t.Errorf("window = %+v, want size %d overlap %d", w, DefaultLineWindow, DefaultLineOverlap)
	}
	if cfg.Translate.Delay != 250*time.Millisecond {
		t.Errorf("delay = %v, want 250ms", cfg.Translate.Delay)
	}
	if cfg.Providers[0].Role != "primary" || cfg.Providers[1].Role != "fallback" {
		t.Errorf("roles = %q, %q", cfg.Providers[0].Role, cfg.Providers[1].Role)
	}
	if !Enabled(cfg.Translate.Stream) || !Enabled(cfg.Translate.Verify) {
		t.Error("stream and verify should default to true")
	}
	if *cfg.Translate.Temperature != 0 {
		t.Errorf("temperature = %v, want 0", *cfg.Translate.Temperature)
	}
}

func TestLoad_TokenDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`version: "1"`))
	if err != nil {
		t.Fatal(err)
	}
	w := cfg.Translate.Window
	if w.Policy != PolicyTokens || w.Size != DefaultTokenWindow || w.OverlapSize() != DefaultTokenOverlap {
		t.Errorf("window = %+v", w)
	}
	if cfg.Translate.Tokenizer != TokenizerCL100k {
		t.Errorf("tokenizer = %q", cfg.Translate.Tokenizer)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("version: ${CODESHIFT_NEVER_SET}"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "CODESHIFT_NEVER_SET") {
		t.Errorf("expected unresolved variable error, got %v", err)
	}
}

func TestLoad_ExplicitZeroOverlap(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1\"\ntranslate:\n  window: {policy: lines, size: 20, overlap: 0}\n"))
	if err != nil {
		t.Fatal(err)
	}
	w := cfg.Translate.Window
	if w.Overlap == nil || *w.Overlap != 0 {
		t.Errorf("overlap = %v, want explicit 0", w.Overlap)
	}
}
