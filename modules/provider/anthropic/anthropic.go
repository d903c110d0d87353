// Package anthropic implements the provider.anthropic module on the
// Anthropic Messages API.
package anthropic

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
)

func init() {
	core.RegisterModule(&Anthropic{})
}

var (
	_ core.Module            = (*Anthropic)(nil)
	_ core.Configurable      = (*Anthropic)(nil)
	_ core.Provisioner       = (*Anthropic)(nil)
	_ core.Validator         = (*Anthropic)(nil)
	_ provider.Provider      = (*Anthropic)(nil)
	_ provider.HealthChecker = (*Anthropic)(nil)
)

// Anthropic is a Claude model behind the Messages API.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.anthropic",
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.logger = ctx.Logger

	if a.config.APIKey == "" {
		a.config.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if r, err := core.ServiceAs[*logging.Redactor](ctx, logging.ServiceName); err == nil {
		r.AddSecret(a.config.APIKey)
	}

	a.client = newClient(a.config)
	ctx.RegisterService("provider.anthropic", a)
	return nil
}

func newClient(cfg Config) *sdkanthropic.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Transport: transport}),
		// The provider chain and the translation driver own retries.
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdkanthropic.NewClient(opts...)
	return &client
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	if a.config.APIKey == "" {
		return errors.New("provider.anthropic: api_key or $ANTHROPIC_API_KEY is required")
	}
	if a.config.MaxTokens < 0 {
		return errors.New("provider.anthropic: max_tokens must not be negative")
	}
	return nil
}

// ContextWindowSize implements provider.Provider.
func (a *Anthropic) ContextWindowSize() int { return a.config.ContextWindow }

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string { return a.config.Model }
