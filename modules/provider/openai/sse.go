package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/flemzord/codeshift/internal/provider"
)

// scannerBufferSize bounds one SSE line.
const scannerBufferSize = 1 << 20

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

func send(ctx context.Context, ch chan<- provider.StreamChunk, c provider.StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// readStream decodes the SSE body into chunks. It closes ch and body when
// the stream ends, fails or ctx is done.
func readStream(ctx context.Context, body io.ReadCloser, ch chan<- provider.StreamChunk) {
	defer close(ch)
	defer func() { _ = body.Close() }()

	// Unblock the scanner on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), scannerBufferSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			send(ctx, ch, provider.StreamChunk{Err: fmt.Errorf("openai: decoding stream chunk: %w", err)})
			return
		}

		var out provider.StreamChunk
		if chunk.Usage != nil {
			u := chunk.Usage.tokens()
			out.Usage = &u
		}
		if len(chunk.Choices) > 0 {
			out.Content = chunk.Choices[0].Delta.Content
			out.FinishReason = mapFinishReason(chunk.Choices[0].FinishReason)
		}
		if out.Content == "" && out.FinishReason == "" && out.Usage == nil {
			continue
		}
		if !send(ctx, ch, out) {
			return
		}
	}

	if ctx.Err() != nil {
		send(ctx, ch, provider.StreamChunk{Err: ctx.Err()})
		return
	}
	if err := scanner.Err(); err != nil {
		send(ctx, ch, provider.StreamChunk{Err: mapConnectionError(err)})
		return
	}
	send(ctx, ch, provider.StreamChunk{Err: fmt.Errorf("%w: stream ended without [DONE]", provider.ErrProviderDown)})
}
