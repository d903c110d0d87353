package anthropic

import (
	"context"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/flemzord/codeshift/internal/provider"
)

// prefill opens the assistant turn of a JSON request. The model continues
// from it, so it is put back in front of the returned text.
const prefill = "{"

// buildParams maps a request onto the Messages API. System messages go to
// the dedicated field; the rest keep their order.
func (a *Anthropic) buildParams(req provider.CompletionRequest) (sdkanthropic.MessageNewParams, bool) {
	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: int64(a.config.MaxTokens),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	for _, m := range req.Messages {
		switch m.Role {
		case provider.MessageRoleSystem:
			params.System = append(params.System, sdkanthropic.TextBlockParam{Text: m.Content})
		case provider.MessageRoleAssistant:
			params.Messages = append(params.Messages, sdkanthropic.NewAssistantMessage(sdkanthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(m.Content)))
		}
	}

	prefilled := req.JSONMode && *a.config.Prefill
	if prefilled {
		params.Messages = append(params.Messages, sdkanthropic.NewAssistantMessage(sdkanthropic.NewTextBlock(prefill)))
	}
	return params, prefilled
}

// Complete implements provider.Provider.
func (a *Anthropic) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	params, prefilled := a.buildParams(req)
	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}

	var text strings.Builder
	if prefilled {
		text.WriteString(prefill)
	}
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return provider.CompletionResponse{
		Content:      text.String(),
		FinishReason: finishReason(msg.StopReason),
		Usage:        provider.TokenUsage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}, nil
}

// HealthCheck sends a one-token request; the API has no health endpoint.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	_, err := a.client.Messages.New(ctx, sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: 1,
		Messages:  []sdkanthropic.MessageParam{sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock("ping"))},
	})
	return mapError(err)
}

func finishReason(r sdkanthropic.StopReason) provider.FinishReason {
	switch r {
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	}
	return provider.FinishReasonStop
}
