package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/flemzord/codeshift/internal/provider"
	"github.com/flemzord/codeshift/internal/tokenizer"
)

// Completer is the part of provider.Chain the LLM translator uses.
type Completer interface {
	Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error)
	ModelName() string
}

// LLMConfig configures an LLMTranslator.
type LLMConfig struct {
	SourceLanguage string
	TargetLanguage string
	Temperature    float64
	MaxTokens      int

	// Stream reads the response incrementally; the text is still buffered
	// and returned whole.
	Stream bool

	// ContextWindow and Estimator enable a warning when a prompt is not
	// expected to fit the model. Both are optional.
	ContextWindow int
	Estimator     tokenizer.Estimator

	Logger *slog.Logger
}

// LLMTranslator implements Translator on top of a provider chain.
type LLMTranslator struct {
	llm    Completer
	cfg    LLMConfig
	system string
	logger *slog.Logger
}

// NewLLMTranslator builds the system prompt once and returns a translator.
func NewLLMTranslator(llm Completer, cfg LLMConfig) (*LLMTranslator, error) {
	system, err := SystemPrompt(cfg.SourceLanguage, cfg.TargetLanguage)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LLMTranslator{llm: llm, cfg: cfg, system: system, logger: logger}, nil
}

// Model returns the model currently answering requests.
func (t *LLMTranslator) Model() string { return t.llm.ModelName() }

// SystemPrompt returns the instructions sent with every request.
func (t *LLMTranslator) SystemPrompt() string { return t.system }

// Translate sends req and returns the buffered response text.
func (t *LLMTranslator) Translate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("translate: encoding request: %w", err)
	}

	msgs := []provider.Message{
		{Role: provider.MessageRoleSystem, Content: t.system},
		{Role: provider.MessageRoleUser, Content: string(payload)},
	}
	t.checkBudget(req, msgs)

	temp := t.cfg.Temperature
	creq := provider.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   t.cfg.MaxTokens,
		Temperature: &temp,
		JSONMode:    true,
	}

	var resp provider.CompletionResponse
	if t.cfg.Stream {
		ch, err := t.llm.Stream(ctx, creq)
		if err != nil {
			return "", err
		}
		resp, err = provider.Collect(ctx, ch)
		if err != nil {
			return "", err
		}
	} else {
		resp, err = t.llm.Complete(ctx, creq)
		if err != nil {
			return "", err
		}
	}

	if resp.FinishReason == provider.FinishReasonLength {
		t.logger.Warn("response truncated by the token limit", "file", req.FileName, "max_tokens", t.cfg.MaxTokens)
	}
	t.logger.Debug("response received",
		"file", req.FileName,
		"bytes", len(resp.Content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Content, nil
}

func (t *LLMTranslator) checkBudget(req Request, msgs []provider.Message) {
	if t.cfg.Estimator == nil || t.cfg.ContextWindow <= 0 {
		return
	}
	budget := tokenizer.PromptBudget{
		WindowSize: t.cfg.ContextWindow,
		Prompt:     tokenizer.EstimateMessages(t.cfg.Estimator, msgs),
		Reserved:   t.cfg.MaxTokens,
	}
	if budget.Exceeded() {
		t.logger.Warn("prompt may not fit the model context window",
			"file", req.FileName,
			"prompt_tokens", budget.Prompt,
			"reserved", budget.Reserved,
			"window", budget.WindowSize,
		)
	}
}
