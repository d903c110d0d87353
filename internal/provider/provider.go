// Package provider defines the LLM provider interface used by the
// translation collaborator, health tracking with exponential backoff and a
// failover chain over several providers.
package provider

import "context"

// Provider talks to one LLM endpoint. Implementations live under
// modules/provider and are registered as core modules.
type Provider interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream sends a request and returns a channel of chunks. Connection
	// errors are returned directly; mid-stream errors arrive as
	// StreamChunk.Err. The channel is closed when the response ends.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// ContextWindowSize returns the model's context window in tokens.
	ContextWindowSize() int

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is implemented by providers that can be probed while in
// cooldown or dead.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
