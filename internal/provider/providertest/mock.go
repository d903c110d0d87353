// Package providertest provides test doubles for the provider package.
package providertest

import (
	"context"
	"sync"

	"github.com/flemzord/codeshift/internal/provider"
)

// MockProvider is a configurable provider.Provider. Unset Func fields
// panic when called, except ModelNameFunc and ContextWindowSizeFunc which
// fall back to "mock" and 8192. All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc          func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	StreamFunc            func(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error)
	ContextWindowSizeFunc func() int
	ModelNameFunc         func() string
	HealthCheckFunc       func(ctx context.Context) error

	mu            sync.Mutex
	CompleteCalls int
	StreamCalls   int
	HealthCalls   int
	Requests      []provider.CompletionRequest
}

func (m *MockProvider) record(req provider.CompletionRequest, stream bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stream {
		m.StreamCalls++
	} else {
		m.CompleteCalls++
	}
	m.Requests = append(m.Requests, req)
}

// Complete delegates to CompleteFunc.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.record(req, false)
	return m.CompleteFunc(ctx, req)
}

// Stream delegates to StreamFunc.
func (m *MockProvider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	m.record(req, true)
	return m.StreamFunc(ctx, req)
}

// ContextWindowSize delegates to ContextWindowSizeFunc.
func (m *MockProvider) ContextWindowSize() int {
	if m.ContextWindowSizeFunc == nil {
		return 8192
	}
	return m.ContextWindowSizeFunc()
}

// ModelName delegates to ModelNameFunc.
func (m *MockProvider) ModelName() string {
	if m.ModelNameFunc == nil {
		return "mock"
	}
	return m.ModelNameFunc()
}

// HealthCheck delegates to HealthCheckFunc.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.HealthCalls++
	m.mu.Unlock()
	return m.HealthCheckFunc(ctx)
}

// Calls returns the number of Complete and Stream calls so far.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CompleteCalls + m.StreamCalls
}

// Script returns a provider that answers successive calls with the given
// responses, split into chunks of at most chunkSize bytes when streamed.
// Calls past the end repeat the last response.
func Script(chunkSize int, responses ...string) *MockProvider {
	var (
		mu sync.Mutex
		n  int
	)
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		r := responses[min(n, len(responses)-1)]
		n++
		return r
	}
	return &MockProvider{
		CompleteFunc: func(_ context.Context, _ provider.CompletionRequest) (provider.CompletionResponse, error) {
			return provider.CompletionResponse{Content: next(), FinishReason: provider.FinishReasonStop}, nil
		},
		StreamFunc: func(_ context.Context, _ provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
			return Chunks(next(), chunkSize), nil
		},
		HealthCheckFunc: func(context.Context) error { return nil },
	}
}

// Chunks returns a closed, buffered channel carrying s in pieces of at
// most size bytes followed by a stop marker.
func Chunks(s string, size int) <-chan provider.StreamChunk {
	if size <= 0 {
		size = len(s) + 1
	}
	ch := make(chan provider.StreamChunk, len(s)/size+2)
	for len(s) > size {
		ch <- provider.StreamChunk{Content: s[:size]}
		s = s[size:]
	}
	if s != "" {
		ch <- provider.StreamChunk{Content: s}
	}
	ch <- provider.StreamChunk{FinishReason: provider.FinishReasonStop}
	close(ch)
	return ch
}

// Interface guards.
var (
	_ provider.Provider      = (*MockProvider)(nil)
	_ provider.HealthChecker = (*MockProvider)(nil)
)
