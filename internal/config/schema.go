// Package config handles YAML configuration loading, environment variable
// expansion, defaults and validation for codeshift.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Window policies.
const (
	PolicyLines  = "lines"
	PolicyTokens = "tokens"
)

// Tokenizers usable under the token policy.
const (
	TokenizerCL100k = "cl100k"
	TokenizerO200k  = "o200k"
	TokenizerChars  = "chars"
	TokenizerLines  = "lines"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Only "1" is supported.
	Version string `yaml:"version"`

	Log       LogConfig       `yaml:"log"`
	Translate TranslateConfig `yaml:"translate"`

	// Providers lists provider modules in chain order.
	Providers []ProviderEntry `yaml:"providers"`

	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Schedule is a five-field cron expression used by `codeshift serve`.
	Schedule string `yaml:"schedule,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TranslateConfig is the configuration surface of a translation run.
type TranslateConfig struct {
	Source      Endpoint      `yaml:"source"`
	Destination Endpoint      `yaml:"destination"`
	Window      WindowConfig  `yaml:"window"`
	Tokenizer   string        `yaml:"tokenizer"`
	Delay       time.Duration `yaml:"delay"`

	// RequestsPerMinute caps collaborator calls across all files. Zero
	// disables the shared limiter.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	Parallelism    int           `yaml:"parallelism"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retry          RetryConfig   `yaml:"retry"`
	Temperature    *float64      `yaml:"temperature,omitempty"`
	Stream         *bool         `yaml:"stream,omitempty"`
	Verify         *bool         `yaml:"verify,omitempty"`
	Overwrite      *bool         `yaml:"overwrite,omitempty"`
}

// Endpoint is one side of the translation: where files live and what they are.
type Endpoint struct {
	Folder    string `yaml:"folder"`
	Extension string `yaml:"extension"`

	// Language is the human-readable language name given to the model.
	// Detected from the extension when empty.
	Language string `yaml:"language,omitempty"`
}

// WindowConfig sizes windows and their overlap. Size and Overlap are line
// counts under the lines policy and token counts under the tokens policy.
// Overlap is a pointer so that an explicit 0 survives defaulting.
type WindowConfig struct {
	Policy  string `yaml:"policy"`
	Size    int    `yaml:"size"`
	Overlap *int   `yaml:"overlap,omitempty"`
}

// OverlapSize returns the configured overlap, 0 when unset.
func (w WindowConfig) OverlapSize() int {
	if w.Overlap == nil {
		return 0
	}
	return *w.Overlap
}

// RetryConfig controls retries of a rejected window with the same request.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// ProviderEntry places a provider module in the failover chain.
type ProviderEntry struct {
	Module string `yaml:"module"`

	// Role is "primary" or "fallback".
	Role string `yaml:"role"`
}

// TelemetryConfig enables metrics and tracing.
type TelemetryConfig struct {
	Metrics *bool         `yaml:"metrics,omitempty"`
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig configures the OTLP/HTTP trace exporter. An empty endpoint
// disables tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Enabled reports whether b is set and true.
func Enabled(b *bool) bool { return b != nil && *b }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
