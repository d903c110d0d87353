// Package ollama implements the provider.ollama module against a local or
// remote Ollama server's /api/chat endpoint.
package ollama

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/logging"
	"github.com/flemzord/codeshift/internal/provider"
)

func init() {
	core.RegisterModule(&Ollama{})
}

var (
	_ core.Module            = (*Ollama)(nil)
	_ core.Configurable      = (*Ollama)(nil)
	_ core.Provisioner       = (*Ollama)(nil)
	_ core.Validator         = (*Ollama)(nil)
	_ provider.Provider      = (*Ollama)(nil)
	_ provider.HealthChecker = (*Ollama)(nil)
)

const (
	defaultBaseURL       = "http://localhost:11434"
	defaultTimeout       = 10 * time.Minute
	defaultContextWindow = 8192
)

// Config holds the configuration of the provider.ollama module.
type Config struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// APIKey is sent as a bearer token, for servers behind a proxy.
	APIKey string `yaml:"api_key"`

	// ContextWindow is passed to the server as num_ctx.
	ContextWindow int           `yaml:"context_window"`
	Timeout       time.Duration `yaml:"timeout"`
	KeepAlive     string        `yaml:"keep_alive"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ContextWindow == 0 {
		c.ContextWindow = defaultContextWindow
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Ollama is a model served by Ollama.
type Ollama struct {
	config Config
	logger *slog.Logger

	// http bounds whole requests; stream has no overall timeout.
	http   *resty.Client
	stream *resty.Client
}

// ModuleInfo implements core.Module.
func (o *Ollama) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.ollama",
		New: func() core.Module { return &Ollama{} },
	}
}

// Configure implements core.Configurable.
func (o *Ollama) Configure(node *yaml.Node) error {
	if err := node.Decode(&o.config); err != nil {
		return err
	}
	o.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (o *Ollama) Provision(ctx *core.AppContext) error {
	o.config.defaults()
	o.logger = ctx.Logger
	o.http = o.newClient().SetTimeout(o.config.Timeout)
	o.stream = o.newClient()

	if o.config.APIKey != "" {
		if r, err := core.ServiceAs[*logging.Redactor](ctx, logging.ServiceName); err == nil {
			r.AddSecret(o.config.APIKey)
		}
	}
	ctx.RegisterService("provider.ollama", o)
	return nil
}

func (o *Ollama) newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(o.config.BaseURL).
		SetHeader("Content-Type", "application/json")
	if o.config.APIKey != "" {
		c.SetAuthToken(o.config.APIKey)
	}
	return c
}

// Validate implements core.Validator.
func (o *Ollama) Validate() error {
	if o.config.Model == "" {
		return errors.New("provider.ollama: model is required")
	}
	return nil
}

// ContextWindowSize implements provider.Provider.
func (o *Ollama) ContextWindowSize() int { return o.config.ContextWindow }

// ModelName implements provider.Provider.
func (o *Ollama) ModelName() string { return o.config.Model }
