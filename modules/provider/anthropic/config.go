package anthropic

import "time"

const (
	defaultModel         = "claude-sonnet-4-5-20250929"
	defaultMaxTokens     = 8192
	defaultContextWindow = 200_000

	// defaultTimeout bounds the wait for response headers. A stream that
	// has started is not cut by it.
	defaultTimeout = 60 * time.Second
)

// Config holds the configuration of the provider.anthropic module.
type Config struct {
	// APIKey falls back to $ANTHROPIC_API_KEY when empty.
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	MaxTokens     int           `yaml:"max_tokens"`
	ContextWindow int           `yaml:"context_window"`
	Timeout       time.Duration `yaml:"timeout"`

	// Prefill starts the assistant turn with "{" when JSON is requested,
	// since the Messages API has no JSON switch. On by default.
	Prefill *bool `yaml:"prefill"`
}

func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = defaultContextWindow
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Prefill == nil {
		on := true
		c.Prefill = &on
	}
}
