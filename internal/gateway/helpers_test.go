package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/batch"
	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/internal/provider/providertest"
	"github.com/flemzord/codeshift/internal/tokenizer"
	"github.com/flemzord/codeshift/internal/translate"
	"github.com/flemzord/codeshift/internal/window"
)

func mustYAMLNode(t *testing.T, s string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(s), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return node.Content[0]
}

// newTestGateway provisions a gateway from cfg without listening.
func newTestGateway(t *testing.T, cfg string) *Gateway {
	t.Helper()
	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, cfg)); err != nil {
		t.Fatal(err)
	}
	if err := g.Provision(core.NewAppContext(logging.Discard(), t.TempDir())); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = g.Stop(context.Background()) })
	return g
}

func serve(t *testing.T, g *Gateway) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(g.buildRouter())
	t.Cleanup(srv.Close)
	return srv
}

func failingChain(t *testing.T) *provider.Chain {
	t.Helper()
	mock := &providertest.MockProvider{
		CompleteFunc: func(context.Context, provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{}, provider.ErrProviderDown
		},
		HealthCheckFunc: func(context.Context) error { return provider.ErrProviderDown },
	}
	chain, err := provider.NewChain([]provider.ChainEntry{{
		Name: "down", Provider: mock, Role: provider.RolePrimary,
		Health: provider.HealthConfig{MaxFailures: 1},
	}})
	if err != nil {
		t.Fatal(err)
	}
	_, _ = chain.Complete(context.Background(), provider.CompletionRequest{})
	return chain
}

// newManager returns a batch manager over a one-file source tree. A nil
// tr echoes lines.
func newManager(t *testing.T, tr translate.Translator) *batch.Manager {
	t.Helper()
	if tr == nil {
		tr = translate.TranslatorFunc(echo)
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "a.vb"), []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d := translate.NewDriver(tr, translate.Options{
		Window: window.Config{Size: tokenizer.Lines(10), Overlap: tokenizer.Lines(2)},
	})
	r := batch.NewRunner(d, batch.Options{
		SourceDir: src, SourceExt: ".vb",
		DestDir: filepath.Join(dir, "out"), DestExt: ".cs",
		Overwrite: true,
	})
	return batch.NewManager(r, 0, nil)
}

func echo(_ context.Context, req translate.Request) (string, error) {
	data, _ := json.Marshal(map[string][]string{"currentChunk": req.Current})
	return string(data), nil
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func do(t *testing.T, method, url, auth string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}
