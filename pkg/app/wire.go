package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/flemzord/codeshift/internal/config"
	"github.com/flemzord/codeshift/internal/core"
	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/internal/tokenizer"
	"github.com/flemzord/codeshift/internal/verify"
	"github.com/flemzord/codeshift/internal/window"
)

// buildChain looks up the loaded provider modules in chain order. It also
// returns the first entry, whose context window sizes prompt warnings.
func buildChain(app *core.App, entries []config.ProviderEntry, logger *slog.Logger) (*provider.Chain, provider.Provider, error) {
	if len(entries) == 0 {
		return nil, nil, provider.ErrNoProvider
	}

	chainEntries := make([]provider.ChainEntry, 0, len(entries))
	for _, e := range entries {
		mod, ok := app.Module(core.ModuleID(e.Module))
		if !ok {
			return nil, nil, fmt.Errorf("app: provider module %s is not loaded", e.Module)
		}
		p, ok := mod.(provider.Provider)
		if !ok {
			return nil, nil, fmt.Errorf("app: module %s is not a provider", e.Module)
		}
		chainEntries = append(chainEntries, provider.ChainEntry{
			Name:     e.Module,
			Provider: p,
			Role:     provider.Role(e.Role),
		})
	}

	chain, err := provider.NewChain(chainEntries, provider.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return chain, chainEntries[0].Provider, nil
}

func newEstimator(name string) (tokenizer.Estimator, error) {
	est, err := tokenizer.New(name)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return est, nil
}

// windowConfig turns the configured sizes into budgets. Under the lines
// policy the estimator is not consulted.
func windowConfig(w config.WindowConfig, est tokenizer.Estimator) window.Config {
	if w.Policy == config.PolicyLines {
		return window.Config{
			Size:    tokenizer.Lines(w.Size),
			Overlap: tokenizer.Lines(w.OverlapSize()),
		}
	}
	return window.Config{
		Size:    tokenizer.Tokens(w.Size, est),
		Overlap: tokenizer.Tokens(w.OverlapSize(), est),
	}
}

// language names an endpoint's language for the prompt: the configured
// name, else the one detected from the extension, else the bare extension.
func language(e config.Endpoint) string {
	if e.Language != "" {
		return e.Language
	}
	if name := verify.DetectLanguage(e.Extension); name != "" {
		return name
	}
	return strings.TrimPrefix(e.Extension, ".")
}
