// Package openrouter implements the provider.openrouter module. OpenRouter
// speaks the Chat Completions protocol, so requests go through the openai
// client with OpenRouter's base URL and attribution headers.
package openrouter

import (
	"context"
	"fmt"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/modules/provider/openai"
)

// Interface guards.
var (
	_ provider.Provider      = (*OpenRouter)(nil)
	_ provider.HealthChecker = (*OpenRouter)(nil)
	_ core.Configurable      = (*OpenRouter)(nil)
	_ core.Provisioner       = (*OpenRouter)(nil)
	_ core.Validator         = (*OpenRouter)(nil)
)

func init() {
	core.RegisterModule(&OpenRouter{})
}

// OpenRouter is a provider.Provider that communicates with the OpenRouter API.
type OpenRouter struct {
	config Config
	client *openai.Provider
}

// ModuleInfo returns the module metadata for registration.
func (o *OpenRouter) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.openrouter",
		New: func() core.Module { return &OpenRouter{} },
	}
}

// Configure decodes the YAML configuration and applies defaults.
func (o *OpenRouter) Configure(node *yaml.Node) error {
	if err := node.Decode(&o.config); err != nil {
		return fmt.Errorf("openrouter: decoding config: %w", err)
	}
	o.config.defaults()
	return nil
}

// Provision builds the underlying client and registers this provider as
// a service.
func (o *OpenRouter) Provision(ctx *core.AppContext) error {
	o.config.defaults()
	if err := o.validate(); err != nil {
		return err
	}

	client, err := openai.New(o.config.clientConfig(), ctx.Logger)
	if err != nil {
		return fmt.Errorf("openrouter: %w", err)
	}
	o.client = client

	if r, err := core.ServiceAs[*logging.Redactor](ctx, logging.ServiceName); err == nil {
		r.AddSecret(o.config.APIKey)
	}
	ctx.RegisterService("provider.openrouter", o)
	return nil
}

// Validate checks that required configuration fields are set.
func (o *OpenRouter) Validate() error {
	return o.validate()
}

func (o *OpenRouter) validate() error {
	if o.config.APIKey == "" {
		return fmt.Errorf("openrouter: api_key is required")
	}
	if o.config.Model == "" {
		return fmt.Errorf("openrouter: model is required")
	}

	u, err := url.Parse(o.config.BaseURL)
	if err != nil {
		return fmt.Errorf("openrouter: invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("openrouter: base_url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("openrouter: base_url must include a host")
	}
	return nil
}

// Complete implements provider.Provider.
func (o *OpenRouter) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	return o.client.Complete(ctx, req)
}

// Stream implements provider.Provider.
func (o *OpenRouter) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	return o.client.Stream(ctx, req)
}

// HealthCheck implements provider.HealthChecker.
func (o *OpenRouter) HealthCheck(ctx context.Context) error {
	return o.client.HealthCheck(ctx)
}

// ContextWindowSize returns the configured override or the size known for
// the model.
func (o *OpenRouter) ContextWindowSize() int {
	if o.config.ContextWindow > 0 {
		return o.config.ContextWindow
	}
	return lookupContextWindow(o.config.resolvedModel())
}

// ModelName returns the resolved model identifier.
func (o *OpenRouter) ModelName() string { return o.config.resolvedModel() }
