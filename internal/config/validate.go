package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/codeshift/internal/core"
)

// CronParser is the five-field parser shared with the scheduler.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks a defaulted Config and reports every problem at once.
// Module IDs are checked against the registry, so provider and cache
// packages must be imported before calling it.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateTranslate(&cfg.Translate)...)
	errs = append(errs, validateProviders(cfg)...)

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	if cfg.Schedule != "" {
		if _, err := CronParser.Parse(cfg.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("config: schedule %q: %w", cfg.Schedule, err))
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: log.level %q must be debug, info, warn or error", cfg.Log.Level))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", cfg.Log.Format))
	}

	return errors.Join(errs...)
}

func validateTranslate(t *TranslateConfig) []error {
	var errs []error

	for _, ep := range []struct {
		name string
		e    Endpoint
	}{{"source", t.Source}, {"destination", t.Destination}} {
		if ep.e.Folder == "" {
			errs = append(errs, fmt.Errorf("config: translate.%s.folder is required", ep.name))
		}
		if !strings.HasPrefix(ep.e.Extension, ".") {
			errs = append(errs, fmt.Errorf("config: translate.%s.extension %q must start with a dot", ep.name, ep.e.Extension))
		}
	}

	w := t.Window
	switch w.Policy {
	case PolicyLines:
		if w.OverlapSize() > w.Size {
			errs = append(errs, fmt.Errorf("config: translate.window.overlap %d exceeds size %d", w.OverlapSize(), w.Size))
		}
	case PolicyTokens:
		switch t.Tokenizer {
		case TokenizerCL100k, TokenizerO200k, TokenizerChars, TokenizerLines:
		default:
			errs = append(errs, fmt.Errorf("config: unknown translate.tokenizer %q", t.Tokenizer))
		}
	default:
		errs = append(errs, fmt.Errorf("config: translate.window.policy %q must be %q or %q", w.Policy, PolicyLines, PolicyTokens))
	}
	if w.Size <= 0 {
		errs = append(errs, fmt.Errorf("config: translate.window.size must be positive, got %d", w.Size))
	}
	if w.OverlapSize() < 0 {
		errs = append(errs, fmt.Errorf("config: translate.window.overlap must not be negative, got %d", w.OverlapSize()))
	}

	if t.Delay < 0 {
		errs = append(errs, errors.New("config: translate.delay must not be negative"))
	}
	if t.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("config: translate.requests_per_minute must not be negative"))
	}
	if t.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("config: translate.parallelism must be at least 1, got %d", t.Parallelism))
	}
	if t.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("config: translate.retry.max_attempts must be at least 1, got %d", t.Retry.MaxAttempts))
	}
	return errs
}

func validateProviders(cfg *Config) []error {
	if len(cfg.Providers) == 0 {
		return []error{errors.New("config: at least one provider must be configured")}
	}

	var errs []error
	primary := 0
	for i, p := range cfg.Providers {
		info, ok := core.GetModule(p.Module)
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("config: providers[%d]: unknown module %q", i, p.Module))
		case info.ID.Namespace() != "provider":
			errs = append(errs, fmt.Errorf("config: providers[%d]: module %q is not a provider", i, p.Module))
		}
		switch p.Role {
		case "primary":
			primary++
		case "fallback":
		default:
			errs = append(errs, fmt.Errorf("config: providers[%d]: role %q must be primary or fallback", i, p.Role))
		}
	}
	if primary == 0 {
		errs = append(errs, errors.New("config: no provider has the primary role"))
	}
	return errs
}
