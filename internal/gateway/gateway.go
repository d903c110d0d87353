// Package gateway implements the gateway.http module: an HTTP server
// exposing provider health, Prometheus metrics, a runs API and a websocket
// stream of translation events. It binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/batch"
	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/provider"
)

// Service names resolved at Start. All are optional.
const (
	ServiceEvents  = "gateway.events"
	ServiceChain   = "provider.chain"
	ServiceRuns    = "batch.manager"
	ServiceMetrics = "telemetry.metrics"
)

func init() {
	core.RegisterModule(&Gateway{})
}

var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. Nothing imports it; other
// components reach it through the services it publishes and resolves.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	hub       *Hub
	server    *http.Server
	addr      net.Addr
	startedAt time.Time

	// ctx bounds runs started over HTTP; cancel ends them on Stop.
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	chain   *provider.Chain
	runs    *batch.Manager
	metrics http.Handler
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The event hub is published here
// so the translation pipeline can observe into it before Start.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.hub = NewHub(g.config.EventBuffer)
	g.init()
	ctx.RegisterService(ServiceEvents, g.hub)

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway API is not authenticated", "bind", g.config.Bind)
	}
	return nil
}

func (g *Gateway) init() {
	g.once.Do(func() {
		g.ctx, g.cancel = context.WithCancel(context.Background())
	})
}

func (g *Gateway) done() <-chan struct{} {
	g.init()
	return g.ctx.Done()
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It binds the services published by other
// components, then serves in the background.
func (g *Gateway) Start() error {
	g.resolve()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("gateway listening", "addr", g.addr.String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

func (g *Gateway) resolve() {
	if chain, err := core.ServiceAs[*provider.Chain](g.appCtx, ServiceChain); err == nil {
		g.chain = chain
	}
	if runs, err := core.ServiceAs[*batch.Manager](g.appCtx, ServiceRuns); err == nil {
		g.runs = runs
	}
	if m, err := core.ServiceAs[interface{ Handler() http.Handler }](g.appCtx, ServiceMetrics); err == nil {
		g.metrics = m.Handler()
	}
}

// Addr returns the listening address once started.
func (g *Gateway) Addr() net.Addr { return g.addr }

// Stop implements core.Stopper. Runs started over HTTP are cancelled and
// awaited after the server has shut down.
func (g *Gateway) Stop(ctx context.Context) error {
	g.init()
	g.cancel()

	var err error
	if g.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
		defer cancel()
		g.logger.Info("gateway shutting down")
		err = g.server.Shutdown(shutdownCtx)
	}
	if g.runs != nil {
		g.runs.Wait()
	}
	return err
}
