package provider

import (
	"context"
	"strings"
)

// Role places a provider in the chain.
type Role string

// Chain roles. Primaries are tried first, in order, then fallbacks.
const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
)

// MessageRole identifies the sender of a message.
type MessageRole string

// Message roles.
const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// FinishReason describes why the model stopped generating.
type FinishReason string

// Finish reasons.
const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonFiltering FinishReason = "filtering"
)

// Message is one turn of a prompt.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// CompletionRequest is the input to Complete and Stream.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stop        []string  `json:"stop,omitempty"`

	// JSONMode asks the provider for a single JSON object. Providers
	// without a native switch rely on the prompt alone.
	JSONMode bool `json:"json_mode,omitempty"`
}

// CompletionResponse is the output of Complete.
type CompletionResponse struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// StreamChunk is one piece of a streamed response.
type StreamChunk struct {
	Content      string       `json:"content,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
	Err          error        `json:"-"`
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates o into u.
func (u *TokenUsage) Add(o TokenUsage) {
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

// Collect drains a stream into a single response. It returns the first
// chunk error, or the context error if ctx ends before the stream does.
// Content received before an error is discarded.
func Collect(ctx context.Context, ch <-chan StreamChunk) (CompletionResponse, error) {
	var (
		sb   strings.Builder
		resp CompletionResponse
	)
	for {
		select {
		case <-ctx.Done():
			return CompletionResponse{}, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				resp.Content = sb.String()
				return resp, nil
			}
			if chunk.Err != nil {
				return CompletionResponse{}, chunk.Err
			}
			sb.WriteString(chunk.Content)
			if chunk.FinishReason != "" {
				resp.FinishReason = chunk.FinishReason
			}
			if chunk.Usage != nil {
				resp.Usage.Add(*chunk.Usage)
			}
		}
	}
}
