package anthropic

import (
	"context"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/flemzord/codeshift/internal/provider"
)

const streamBufferSize = 32

// Stream implements provider.Provider. The first event is read before
// returning so that connection and auth failures surface as an error the
// chain can fail over on.
func (a *Anthropic) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	params, prefilled := a.buildParams(req)
	stream := a.client.Messages.NewStreaming(ctx, params)

	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return nil, mapError(err)
		}
		ch := make(chan provider.StreamChunk)
		close(ch)
		return ch, nil
	}

	ch := make(chan provider.StreamChunk, streamBufferSize)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		if prefilled && !emit(ctx, ch, provider.StreamChunk{Content: prefill}) {
			return
		}
		consume(ctx, stream, ch)
	}()
	return ch, nil
}

// consume forwards text deltas and the final usage. stream.Current holds
// the event already read by Stream.
func consume(ctx context.Context, stream *ssestream.Stream[sdkanthropic.MessageStreamEventUnion], ch chan<- provider.StreamChunk) {
	var inputTokens int64
	for {
		switch ev := stream.Current().AsAny().(type) {
		case sdkanthropic.MessageStartEvent:
			inputTokens = ev.Message.Usage.InputTokens
		case sdkanthropic.ContentBlockDeltaEvent:
			if d, ok := ev.Delta.AsAny().(sdkanthropic.TextDelta); ok && d.Text != "" {
				if !emit(ctx, ch, provider.StreamChunk{Content: d.Text}) {
					return
				}
			}
		case sdkanthropic.MessageDeltaEvent:
			out := ev.Usage.OutputTokens
			if !emit(ctx, ch, provider.StreamChunk{
				FinishReason: finishReason(ev.Delta.StopReason),
				Usage: &provider.TokenUsage{
					PromptTokens:     int(inputTokens),
					CompletionTokens: int(out),
					TotalTokens:      int(inputTokens + out),
				},
			}) {
				return
			}
		}
		if !stream.Next() {
			break
		}
	}
	if err := stream.Err(); err != nil {
		emit(ctx, ch, provider.StreamChunk{Err: mapError(err)})
	}
}

func emit(ctx context.Context, ch chan<- provider.StreamChunk, c provider.StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
