package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/telemetry"
)

// ---------------------------------------------------------------------------
// Module lifecycle
// ---------------------------------------------------------------------------

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()

	info := (&Gateway{}).ModuleInfo()
	if info.ID != "gateway.http" {
		t.Errorf("ID = %q", info.ID)
	}
	if _, ok := info.New().(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_Configure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want Config
	}{
		{
			name: "defaults",
			yaml: "{}",
			want: Config{
				Bind: "127.0.0.1:8080", ReadTimeout: 10 * time.Second, WriteTimeout: 30 * time.Second,
				ShutdownTimeout: 5 * time.Second, AuthPerMinute: 60, EventBuffer: 256,
			},
		},
		{
			name: "custom",
			yaml: "bind: 0.0.0.0:9090\nread_timeout: 5s\nauth:\n  bearer_token: tok\nevent_buffer: 8\n",
			want: Config{
				Bind: "0.0.0.0:9090", ReadTimeout: 5 * time.Second, WriteTimeout: 30 * time.Second,
				ShutdownTimeout: 5 * time.Second, AuthPerMinute: 60, EventBuffer: 8,
				Auth: AuthConfig{BearerToken: "tok"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := &Gateway{}
			if err := g.Configure(mustYAMLNode(t, tt.yaml)); err != nil {
				t.Fatal(err)
			}
			if g.config != tt.want {
				t.Errorf("config = %+v, want %+v", g.config, tt.want)
			}
		})
	}
}

func TestGateway_ValidateBind(t *testing.T) {
	t.Parallel()

	g := &Gateway{config: Config{Bind: "not an address"}}
	if err := g.Validate(); err == nil {
		t.Error("expected error for invalid bind")
	}
}

func TestGateway_ProvisionPublishesHub(t *testing.T) {
	t.Parallel()

	app := core.NewAppContext(logging.Discard(), t.TempDir())
	g := &Gateway{}
	if err := g.Provision(app); err != nil {
		t.Fatal(err)
	}
	hub, err := core.ServiceAs[*Hub](app, ServiceEvents)
	if err != nil || hub != g.hub {
		t.Fatalf("hub = %v, %v", hub, err)
	}
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()

	app := core.NewAppContext(logging.Discard(), t.TempDir())
	metrics := telemetry.NewMetrics()
	app.RegisterService(ServiceMetrics, metrics)
	app.RegisterService(ServiceChain, failingChain(t))

	g := &Gateway{}
	if err := g.Configure(mustYAMLNode(t, "bind: 127.0.0.1:0\n")); err != nil {
		t.Fatal(err)
	}
	if err := g.Provision(app); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	base := "http://" + g.Addr().String()

	resp := do(t, http.MethodGet, base+"/health", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503 for a dead chain", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = do(t, http.MethodGet, base+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "codeshift_") {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}

	if err := g.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-g.done():
	default:
		t.Error("gateway context not cancelled by Stop")
	}
}

// ---------------------------------------------------------------------------
// Health & status
// ---------------------------------------------------------------------------

func TestHealth_NoChain(t *testing.T) {
	t.Parallel()

	srv := serve(t, newTestGateway(t, "{}"))
	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[HealthResponse](t, resp); got.Status != "ok" || len(got.Providers) != 0 {
		t.Errorf("health = %+v", got)
	}
}

func TestHealth_DeadChain(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, "{}")
	g.chain = failingChain(t)
	srv := serve(t, g)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	got := decode[HealthResponse](t, resp)
	if resp.StatusCode != http.StatusServiceUnavailable || got.Status != "degraded" {
		t.Fatalf("status = %d, health = %+v", resp.StatusCode, got)
	}
	if len(got.Providers) != 1 || got.Providers[0].State != "dead" {
		t.Errorf("providers = %+v", got.Providers)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	g := newTestGateway(t, "{}")
	g.runs = newManager(t, nil)
	srv := serve(t, g)

	got := decode[StatusResponse](t, do(t, http.MethodGet, srv.URL+"/status", ""))
	if got.RunActive || got.Runs != 0 || got.Providers == nil {
		t.Errorf("status = %+v", got)
	}
}
