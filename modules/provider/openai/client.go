package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/flemzord/codeshift/internal/provider"
)

// maxResponseSize caps a non-streamed response body.
const maxResponseSize = 10 << 20

const streamChannelBuffer = 64

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	StreamOptions  *streamOptions  `json:"stream_options,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u chatUsage) tokens() provider.TokenUsage {
	return provider.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason *string     `json:"finish_reason"`
	} `json:"choices"`
	Usage chatUsage `json:"usage"`
}

func (p *Provider) buildRequest(req provider.CompletionRequest, stream bool) chatRequest {
	cr := chatRequest{
		Model:       p.config.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
		Stream:      stream,
	}
	for i, m := range req.Messages {
		cr.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	if cr.MaxTokens == 0 {
		cr.MaxTokens = p.config.MaxTokens
	}
	if req.JSONMode && p.config.JSONMode != nil && *p.config.JSONMode {
		cr.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if stream {
		cr.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	return cr
}

func (p *Provider) newRequest(ctx context.Context, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	for k, v := range p.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	httpReq, err := p.newRequest(ctx, p.buildRequest(req, false))
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return provider.CompletionResponse{}, mapConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return provider.CompletionResponse{}, mapConnectionError(err)
	}
	if err := mapHTTPError(resp.StatusCode, body); err != nil {
		return provider.CompletionResponse{}, err
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return provider.CompletionResponse{}, fmt.Errorf("openai: decoding response: %w", err)
	}
	out := provider.CompletionResponse{Usage: cr.Usage.tokens()}
	if len(cr.Choices) > 0 {
		out.Content = cr.Choices[0].Message.Content
		out.FinishReason = mapFinishReason(cr.Choices[0].FinishReason)
	}
	return out, nil
}

// Stream implements provider.Provider.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	httpReq, err := p.newRequest(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}
	resp, err := p.streamClient.Do(httpReq)
	if err != nil {
		return nil, mapConnectionError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		return nil, mapHTTPError(resp.StatusCode, body)
	}

	ch := make(chan provider.StreamChunk, streamChannelBuffer)
	go readStream(ctx, resp.Body, ch)
	return ch, nil
}

// HealthCheck sends a one-token completion, which exercises the key, the
// model and the quota.
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, provider.CompletionRequest{
		Messages:  []provider.Message{{Role: provider.MessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}

func mapFinishReason(reason *string) provider.FinishReason {
	if reason == nil {
		return ""
	}
	switch *reason {
	case "stop":
		return provider.FinishReasonStop
	case "length":
		return provider.FinishReasonLength
	case "content_filter":
		return provider.FinishReasonFiltering
	}
	return provider.FinishReason(*reason)
}
