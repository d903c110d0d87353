package tokenizer

import "github.com/flemzord/codeshift/internal/provider"

// messageOverhead approximates the role and framing tokens of one message.
const messageOverhead = 4

// PromptBudget tracks how a request fills the model's context window.
type PromptBudget struct {
	WindowSize int // model context window in tokens
	Prompt     int // tokens used by the assembled messages
	Reserved   int // tokens kept for the reply
}

// Used returns the tokens consumed by the prompt and the reply reserve.
func (b PromptBudget) Used() int { return b.Prompt + b.Reserved }

// Available returns the tokens left, never below zero.
func (b PromptBudget) Available() int { return max(b.WindowSize-b.Used(), 0) }

// Exceeded reports whether the request cannot fit the window.
func (b PromptBudget) Exceeded() bool { return b.WindowSize > 0 && b.Used() > b.WindowSize }

// EstimateMessages returns the estimated prompt tokens of messages.
func EstimateMessages(est Estimator, messages []provider.Message) int {
	total := 0
	for _, m := range messages {
		total += messageOverhead + est.Estimate(m.Content)
	}
	return total
}
