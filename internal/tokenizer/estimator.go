// Package tokenizer measures the cost of source lines for window and
// overlap budgeting, either as a line count or as a token count.
package tokenizer

import (
	"fmt"

	tiktoken "github.com/tiktoken-go/tokenizer"
)

// Estimator returns the token cost of a piece of text.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator approximates tokens with a characters-per-token ratio.
// Around 4 suits English prose; source code is usually closer to 3.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator. A ratio <= 0 defaults to 4.
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate rounds up so that text is never under-counted.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text))/e.CharsPerToken) + 1
}

// LineEstimator counts every piece of text as one unit.
type LineEstimator struct{}

// Estimate always returns 1.
func (LineEstimator) Estimate(string) int { return 1 }

// BPEEstimator counts tokens with a tiktoken byte-pair encoding.
type BPEEstimator struct {
	codec    tiktoken.Codec
	fallback *CharEstimator
}

// NewBPEEstimator loads the named encoding.
func NewBPEEstimator(enc tiktoken.Encoding) (*BPEEstimator, error) {
	codec, err := tiktoken.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: loading %s: %w", enc, err)
	}
	return &BPEEstimator{codec: codec, fallback: NewCharEstimator(0)}, nil
}

// Estimate returns the exact token count, or the character estimate if the
// encoder rejects the text.
func (e *BPEEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	ids, _, err := e.codec.Encode(text)
	if err != nil {
		return e.fallback.Estimate(text)
	}
	return len(ids)
}

// New returns the estimator registered under name: "cl100k", "o200k",
// "chars" or "lines".
func New(name string) (Estimator, error) {
	var enc tiktoken.Encoding
	switch name {
	case "cl100k", "":
		enc = tiktoken.Cl100kBase
	case "o200k":
		enc = tiktoken.O200kBase
	case "chars":
		return NewCharEstimator(0), nil
	case "lines":
		return LineEstimator{}, nil
	default:
		return nil, fmt.Errorf("tokenizer: unknown estimator %q", name)
	}
	est, err := NewBPEEstimator(enc)
	if err != nil {
		return nil, err
	}
	return est, nil
}
