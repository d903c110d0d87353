package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/flemzord/codeshift/internal/provider"
)

const streamBufferSize = 32

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	Format    string         `json:"format,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is both the whole answer and one line of a stream.
type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

func (r chatResponse) usage() provider.TokenUsage {
	return provider.TokenUsage{
		PromptTokens:     r.PromptEvalCount,
		CompletionTokens: r.EvalCount,
		TotalTokens:      r.PromptEvalCount + r.EvalCount,
	}
}

func (r chatResponse) finishReason() provider.FinishReason {
	if r.DoneReason == "length" {
		return provider.FinishReasonLength
	}
	return provider.FinishReasonStop
}

func (o *Ollama) buildRequest(req provider.CompletionRequest, stream bool) chatRequest {
	cr := chatRequest{
		Model:     o.config.Model,
		Messages:  make([]chatMessage, len(req.Messages)),
		Stream:    stream,
		KeepAlive: o.config.KeepAlive,
		Options:   map[string]any{"num_ctx": o.config.ContextWindow},
	}
	for i, m := range req.Messages {
		cr.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}
	if req.JSONMode {
		cr.Format = "json"
	}
	if req.Temperature != nil {
		cr.Options["temperature"] = *req.Temperature
	}
	if req.MaxTokens > 0 {
		cr.Options["num_predict"] = req.MaxTokens
	}
	if len(req.Stop) > 0 {
		cr.Options["stop"] = req.Stop
	}
	return cr
}

// Complete implements provider.Provider.
func (o *Ollama) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	var out chatResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetBody(o.buildRequest(req, false)).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return provider.CompletionResponse{}, mapConnectionError(err)
	}
	if resp.IsError() {
		return provider.CompletionResponse{}, mapHTTPError(resp.StatusCode(), resp.Body())
	}
	return provider.CompletionResponse{
		Content:      out.Message.Content,
		FinishReason: out.finishReason(),
		Usage:        out.usage(),
	}, nil
}

// Stream implements provider.Provider. Ollama streams one JSON object per
// line; the last one has done set.
func (o *Ollama) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	resp, err := o.stream.R().
		SetContext(ctx).
		SetBody(o.buildRequest(req, true)).
		SetDoNotParseResponse(true).
		Post("/api/chat")
	if err != nil {
		return nil, mapConnectionError(err)
	}
	body := resp.RawBody()
	if resp.IsError() {
		defer func() { _ = body.Close() }()
		data, _ := io.ReadAll(io.LimitReader(body, 1<<16))
		return nil, mapHTTPError(resp.StatusCode(), data)
	}

	ch := make(chan provider.StreamChunk, streamBufferSize)
	go func() {
		defer close(ch)
		defer func() { _ = body.Close() }()
		stop := context.AfterFunc(ctx, func() { _ = body.Close() })
		defer stop()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var part chatResponse
			if err := json.Unmarshal(line, &part); err != nil {
				emit(ctx, ch, provider.StreamChunk{Err: fmt.Errorf("ollama: decoding stream line: %w", err)})
				return
			}
			if part.Error != "" {
				emit(ctx, ch, provider.StreamChunk{Err: fmt.Errorf("%w: %s", provider.ErrProviderDown, part.Error)})
				return
			}
			chunk := provider.StreamChunk{Content: part.Message.Content}
			if part.Done {
				u := part.usage()
				chunk.FinishReason, chunk.Usage = part.finishReason(), &u
			}
			if !emit(ctx, ch, chunk) || part.Done {
				return
			}
		}
		if ctx.Err() != nil {
			emit(ctx, ch, provider.StreamChunk{Err: ctx.Err()})
			return
		}
		err := scanner.Err()
		if err == nil {
			err = errors.New("stream ended before done")
		}
		emit(ctx, ch, provider.StreamChunk{Err: fmt.Errorf("%w: %w", provider.ErrProviderDown, err)})
	}()
	return ch, nil
}

// HealthCheck lists the server's models and checks the configured one is
// among them.
func (o *Ollama) HealthCheck(ctx context.Context) error {
	var tags struct {
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	resp, err := o.http.R().SetContext(ctx).SetResult(&tags).Get("/api/tags")
	if err != nil {
		return mapConnectionError(err)
	}
	if resp.IsError() {
		return mapHTTPError(resp.StatusCode(), resp.Body())
	}
	for _, m := range tags.Models {
		if m.Name == o.config.Model || m.Model == o.config.Model {
			return nil
		}
	}
	return fmt.Errorf("ollama: model %q is not pulled on %s", o.config.Model, o.config.BaseURL)
}

func emit(ctx context.Context, ch chan<- provider.StreamChunk, c provider.StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

func mapHTTPError(status int, body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	msg := string(body)
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, msg)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, status, msg)
	}
	return fmt.Errorf("ollama: HTTP %d: %s", status, msg)
}

func mapConnectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	return fmt.Errorf("ollama: %w", err)
}
