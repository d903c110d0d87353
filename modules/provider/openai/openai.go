// Package openai implements the provider.openai module on the Chat
// Completions API, streaming included.
package openai

import (
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
)

func init() {
	core.RegisterModule(&Provider{})
}

var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.HealthChecker = (*Provider)(nil)
	_ core.Module            = (*Provider)(nil)
	_ core.Configurable      = (*Provider)(nil)
	_ core.Provisioner       = (*Provider)(nil)
	_ core.Validator         = (*Provider)(nil)
)

// Provider is an OpenAI-compatible chat model.
type Provider struct {
	config Config
	logger *slog.Logger

	// client carries the configured timeout; streamClient has none
	// because http.Client.Timeout would cut long streams. Streams are
	// bounded by the request context instead.
	client       *http.Client
	streamClient *http.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openai",
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.logger = ctx.Logger
	p.init()

	if r, err := core.ServiceAs[*logging.Redactor](ctx, logging.ServiceName); err == nil {
		r.AddSecret(p.config.APIKey)
	}
	ctx.RegisterService("provider.openai", p)
	return nil
}

// New returns a provider for cfg outside the module system, for modules
// that reach another service over the same protocol.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	p := &Provider{config: cfg, logger: logger}
	p.init()
	if err := p.config.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) init() {
	p.config.defaults()
	p.client = &http.Client{Timeout: p.config.Timeout}
	p.streamClient = &http.Client{}
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// ContextWindowSize implements provider.Provider.
func (p *Provider) ContextWindowSize() int { return p.config.ContextWindow }

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string { return p.config.Model }
