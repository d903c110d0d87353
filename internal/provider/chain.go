package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// discardHandler drops every record without formatting it.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// ChainEntry configures one provider in the chain.
type ChainEntry struct {
	Name     string
	Provider Provider
	Role     Role
	Health   HealthConfig
}

type chainEntry struct {
	ChainEntry
	health *healthTracker
}

// ChainOption configures optional Chain behavior.
type ChainOption func(*Chain)

// WithLogger sets the chain's logger. Without it nothing is logged.
func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

// Chain sends requests to the first available provider and fails over on
// transient errors. Primaries are tried in order before fallbacks. A
// Chain is safe for concurrent use by several file pipelines.
type Chain struct {
	entries []chainEntry
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewChain creates a chain from entries.
func NewChain(entries []ChainEntry, opts ...ChainOption) (*Chain, error) {
	if len(entries) == 0 {
		return nil, ErrNoProvider
	}

	c := &Chain{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(discardHandler{})
	}

	primaries := make([]chainEntry, 0, len(entries))
	var fallbacks []chainEntry
	for _, e := range entries {
		if e.Provider == nil {
			return nil, fmt.Errorf("%w: entry %q has nil provider", ErrNoProvider, e.Name)
		}
		ce := chainEntry{ChainEntry: e, health: newHealthTracker(e.Health)}
		ce.health.onStateChange = c.logTransition(e.Name, ce.health)
		if e.Role == RoleFallback {
			fallbacks = append(fallbacks, ce)
		} else {
			primaries = append(primaries, ce)
		}
	}
	c.entries = append(primaries, fallbacks...)

	return c, nil
}

func (c *Chain) logTransition(name string, h *healthTracker) func(from, to HealthState) {
	return func(from, to HealthState) {
		_, failures, backoff := h.snapshot()
		switch to {
		case StateCooldown:
			c.logger.Warn("provider entered cooldown", "provider", name, "backoff", backoff, "failures", failures)
		case StateDead:
			c.logger.Error("provider marked dead", "provider", name, "failures", failures)
		case StateHealthy:
			c.logger.Info("provider revived", "provider", name, "previous_state", from.String())
		}
	}
}

// Start launches the background health probe loop.
func (c *Chain) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)

	interval := c.entries[0].health.cfg.CheckInterval
	for i := range c.entries {
		interval = min(interval, c.entries[i].health.cfg.CheckInterval)
	}
	go c.runHealthChecks(ctx, interval)
}

// Stop cancels the background health probes.
func (c *Chain) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// ModelName returns the model of the first available provider, or of the
// first entry when none is available.
func (c *Chain) ModelName() string {
	for i := range c.entries {
		if c.entries[i].health.IsAvailable() {
			return c.entries[i].Provider.ModelName()
		}
	}
	return c.entries[0].Provider.ModelName()
}

// Complete sends req to the best available provider with failover.
func (c *Chain) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var resp CompletionResponse
	err := c.each(ctx, func(e *chainEntry) error {
		r, err := e.Provider.Complete(ctx, req)
		if err == nil {
			e.health.RecordSuccess()
			resp = r
		}
		return err
	})
	return resp, err
}

// Stream opens a stream on the best available provider with failover.
// Failover only happens before the first chunk: a mid-stream error is
// delivered to the caller and degrades the provider's health.
func (c *Chain) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	var out <-chan StreamChunk
	err := c.each(ctx, func(e *chainEntry) error {
		ch, err := e.Provider.Stream(ctx, req)
		if err == nil {
			out = c.wrapStream(ch, e)
		}
		return err
	})
	return out, err
}

// each calls try on available entries until one succeeds or returns a
// non-retryable error.
func (c *Chain) each(ctx context.Context, try func(*chainEntry) error) error {
	var lastErr error
	for i := range c.entries {
		e := &c.entries[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.health.IsAvailable() {
			continue
		}

		err := try(e)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}

		e.health.RecordFailure()
		c.logger.Warn("provider failed, failing over", "provider", e.Name, "error", err)
	}

	if lastErr != nil {
		c.logger.Error("all providers exhausted", "last_error", lastErr)
		return fmt.Errorf("%w: last error: %w", ErrAllProviders, lastErr)
	}
	c.logger.Error("all providers exhausted")
	return fmt.Errorf("%w: all candidates unavailable", ErrAllProviders)
}

// wrapStream records the health verdict once the stream ends.
func (c *Chain) wrapStream(src <-chan StreamChunk, e *chainEntry) <-chan StreamChunk {
	out := make(chan StreamChunk, cap(src))
	go func() {
		defer close(out)
		var failed bool
		for chunk := range src {
			if chunk.Err != nil && IsRetryable(chunk.Err) {
				failed = true
				e.health.RecordFailure()
				c.logger.Warn("mid-stream error degraded provider health", "provider", e.Name, "error", chunk.Err)
			}
			out <- chunk
		}
		if !failed {
			e.health.RecordSuccess()
		}
	}()
	return out
}

// Health reports the state of every entry in chain order.
func (c *Chain) Health() []HealthReport {
	reports := make([]HealthReport, len(c.entries))
	for i := range c.entries {
		e := &c.entries[i]
		state, failures, backoff := e.health.snapshot()
		reports[i] = HealthReport{
			Name:     e.Name,
			Model:    e.Provider.ModelName(),
			Role:     e.Role,
			State:    state.String(),
			Failures: failures,
			Backoff:  backoff,
		}
	}
	return reports
}

func (c *Chain) runHealthChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i := range c.entries {
				e := &c.entries[i]
				if !e.health.ShouldHealthCheck() {
					continue
				}
				checker, ok := e.Provider.(HealthChecker)
				if !ok {
					continue
				}
				if err := checker.HealthCheck(ctx); err == nil {
					e.health.RecordSuccess()
				}
			}
		}
	}
}
