package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
)

func configure(t *testing.T, raw string) *OpenRouter {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	o := &OpenRouter{}
	if err := o.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return o
}

func TestOpenRouter_Complete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-or-test" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "codeshift" {
			t.Errorf("X-Title = %q", got)
		}
		if got := r.Header.Get("HTTP-Referer"); got != "https://example.com" {
			t.Errorf("HTTP-Referer = %q", got)
		}
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "openrouter/auto" {
			t.Errorf("model = %q", body.Model)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"currentChunk\":[\"ok\"]}"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)

	o := configure(t, "api_key: sk-or-test\nmodel: auto\nreferer: https://example.com\nbase_url: "+srv.URL+"\n")
	redactor := logging.NewRedactor()
	appCtx := core.NewAppContext(logging.Discard(), t.TempDir())
	appCtx.RegisterService(logging.ServiceName, redactor)
	if err := o.Provision(appCtx); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := appCtx.GetService("provider.openrouter"); !ok {
		t.Error("provider not registered as a service")
	}
	if got := redactor.Redact("key sk-or-test"); strings.Contains(got, "sk-or-test") {
		t.Errorf("api key not redacted: %q", got)
	}

	resp, err := o.Complete(context.Background(), provider.CompletionRequest{
		Messages: []provider.Message{{Role: provider.MessageRoleUser, Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"currentChunk":["ok"]}` || resp.FinishReason != provider.FinishReasonStop {
		t.Errorf("response = %+v", resp)
	}
	if o.ModelName() != "openrouter/auto" {
		t.Errorf("ModelName = %q", o.ModelName())
	}
}

func TestOpenRouter_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"missing key", "model: auto\n"},
		{"missing model", "api_key: k\n"},
		{"bad scheme", "api_key: k\nmodel: auto\nbase_url: ftp://host\n"},
		{"no host", "api_key: k\nmodel: auto\nbase_url: https://\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := configure(t, tt.raw).Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestOpenRouter_ContextWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want int
	}{
		{"api_key: k\nmodel: openai/gpt-4o\n", 128000},
		{"api_key: k\nmodel: google/gemini-2.5-pro\n", 1048576},
		{"api_key: k\nmodel: some/unknown\n", defaultContextWindow},
		{"api_key: k\nmodel: some/unknown\ncontext_window: 4096\n", 4096},
	}
	for _, tt := range tests {
		if got := configure(t, tt.raw).ContextWindowSize(); got != tt.want {
			t.Errorf("%q: ContextWindowSize = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
