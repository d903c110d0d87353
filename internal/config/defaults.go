package config

import "time"

// Fixed-count defaults, matching the classic 50 line window with 10 lines
// of overlap.
const (
	DefaultLineWindow  = 50
	DefaultLineOverlap = 10
)

// Token-budget defaults.
const (
	DefaultTokenWindow  = 1500
	DefaultTokenOverlap = 300
)

const (
	DefaultDelay          = 500 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Minute
	DefaultRetryInitial   = time.Second
	DefaultRetryMax       = 30 * time.Second
	DefaultServiceName    = "codeshift"
)

// ApplyDefaults fills unset fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	t := &cfg.Translate
	if t.Window.Policy == "" {
		t.Window.Policy = PolicyTokens
	}
	if t.Window.Size == 0 {
		if t.Window.Policy == PolicyLines {
			t.Window.Size = DefaultLineWindow
		} else {
			t.Window.Size = DefaultTokenWindow
		}
	}
	if t.Window.Overlap == nil {
		if t.Window.Policy == PolicyLines {
			t.Window.Overlap = Int(min(DefaultLineOverlap, t.Window.Size))
		} else {
			t.Window.Overlap = Int(DefaultTokenOverlap)
		}
	}
	if t.Tokenizer == "" {
		t.Tokenizer = TokenizerCL100k
	}
	if t.Delay == 0 {
		t.Delay = DefaultDelay
	}
	if t.Parallelism == 0 {
		t.Parallelism = 1
	}
	if t.RequestTimeout == 0 {
		t.RequestTimeout = DefaultRequestTimeout
	}
	if t.Retry.MaxAttempts == 0 {
		t.Retry.MaxAttempts = 1
	}
	if t.Retry.InitialInterval == 0 {
		t.Retry.InitialInterval = DefaultRetryInitial
	}
	if t.Retry.MaxInterval == 0 {
		t.Retry.MaxInterval = DefaultRetryMax
	}
	if t.Temperature == nil {
		zero := 0.0
		t.Temperature = &zero
	}
	if t.Stream == nil {
		t.Stream = Bool(true)
	}
	if t.Verify == nil {
		t.Verify = Bool(true)
	}
	if t.Overwrite == nil {
		t.Overwrite = Bool(true)
	}

	for i := range cfg.Providers {
		if cfg.Providers[i].Role == "" {
			if i == 0 {
				cfg.Providers[i].Role = "primary"
			} else {
				cfg.Providers[i].Role = "fallback"
			}
		}
	}

	if cfg.Telemetry.Metrics == nil {
		cfg.Telemetry.Metrics = Bool(true)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultServiceName
	}
}
