package openrouter

import (
	"time"

	"github.com/flemzord/codeshift/modules/provider/openai"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 2 * time.Minute
	defaultTitle   = "codeshift"
)

// Config holds the YAML configuration for the OpenRouter provider module.
type Config struct {
	// APIKey is the OpenRouter API key (required). Typically sk-or-v1-...
	APIKey string `yaml:"api_key"`

	// Model is the model identifier (required). "auto" is mapped to "openrouter/auto".
	Model string `yaml:"model"`

	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`

	// Referer is sent as the HTTP-Referer header (optional).
	Referer string `yaml:"referer"`

	// Title is sent as the X-Title header.
	Title string `yaml:"title"`

	Timeout time.Duration `yaml:"timeout"`

	// ContextWindow overrides the built-in lookup table.
	ContextWindow int `yaml:"context_window"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Title == "" {
		c.Title = defaultTitle
	}
}

// resolvedModel returns the canonical model name.
func (c *Config) resolvedModel() string {
	if c.Model == "auto" {
		return "openrouter/auto"
	}
	return c.Model
}

// clientConfig maps the settings onto the Chat Completions client.
func (c *Config) clientConfig() openai.Config {
	headers := map[string]string{"X-Title": c.Title}
	if c.Referer != "" {
		headers["HTTP-Referer"] = c.Referer
	}
	model := c.resolvedModel()
	window := c.ContextWindow
	if window == 0 {
		window = lookupContextWindow(model)
	}
	return openai.Config{
		APIKey:        c.APIKey,
		Model:         model,
		BaseURL:       c.BaseURL,
		MaxTokens:     c.MaxTokens,
		Timeout:       c.Timeout,
		ContextWindow: window,
		Headers:       headers,
	}
}
