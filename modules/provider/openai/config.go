package openai

import (
	"errors"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 2 * time.Minute
)

// Config holds the configuration for the provider.openai module. Any
// server speaking the Chat Completions protocol can be used through
// base_url.
type Config struct {
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	BaseURL       string        `yaml:"base_url"`
	MaxTokens     int           `yaml:"max_tokens"`
	Timeout       time.Duration `yaml:"timeout"`
	ContextWindow int           `yaml:"context_window"`

	// JSONMode sets response_format to json_object when the request asks
	// for JSON. Disable it for servers that reject the field.
	JSONMode *bool `yaml:"json_mode"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.JSONMode == nil {
		on := true
		c.JSONMode = &on
	}
	if c.ContextWindow == 0 {
		c.ContextWindow = knownContextWindows[c.Model]
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("provider.openai: api_key is required"))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("provider.openai: model is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, errors.New("provider.openai: timeout must not be negative"))
	}
	if c.ContextWindow <= 0 {
		errs = append(errs, errors.New("provider.openai: context_window must be set for unknown models"))
	}
	return errors.Join(errs...)
}

// knownContextWindows maps model names to their context window in tokens.
var knownContextWindows = map[string]int{
	"gpt-3.5-turbo": 16385,
	"gpt-4":         8192,
	"gpt-4-turbo":   128000,
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-4.1":       1047576,
	"gpt-4.1-mini":  1047576,
	"gpt-4.1-nano":  1047576,
	"o3":            200000,
	"o3-mini":       200000,
	"o4-mini":       200000,
}
