package tokenizer

import "fmt"

// Kind is the unit a Budget is expressed in.
type Kind int

// Budget kinds. Exactly one is active per run.
const (
	KindLines Kind = iota
	KindTokens
)

func (k Kind) String() string {
	switch k {
	case KindLines:
		return "lines"
	case KindTokens:
		return "tokens"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Budget bounds a run of lines either by count or by token cost.
//
// A window may fill its budget exactly. Overlap context is stricter under
// the token kind: its cost must stay below the limit.
type Budget struct {
	Kind  Kind
	Limit int
	est   Estimator
}

// Lines returns a budget of n lines.
func Lines(n int) Budget {
	return Budget{Kind: KindLines, Limit: n, est: LineEstimator{}}
}

// Tokens returns a budget of n tokens measured with est.
func Tokens(n int, est Estimator) Budget {
	if est == nil {
		est = NewCharEstimator(0)
	}
	return Budget{Kind: KindTokens, Limit: n, est: est}
}

// Cost returns the cost of one line. Under a token budget every line costs
// at least 1, so blank lines still count against the limit.
func (b Budget) Cost(line string) int {
	if b.Kind == KindLines || b.est == nil {
		return 1
	}
	return max(1, b.est.Estimate(line))
}

// Total returns the summed cost of lines.
func (b Budget) Total(lines []string) int {
	total := 0
	for _, l := range lines {
		total += b.Cost(l)
	}
	return total
}

// Fits reports whether a window costing total stays within the budget.
func (b Budget) Fits(total int) bool {
	return total <= b.Limit
}

// underOverlap reports whether overlap context costing total is allowed.
func (b Budget) underOverlap(total int) bool {
	if b.Kind == KindLines {
		return total <= b.Limit
	}
	return total < b.Limit
}

// Suffix returns the longest suffix of lines allowed as overlap context.
// The result aliases lines.
func (b Budget) Suffix(lines []string) []string {
	total := 0
	start := len(lines)
	for start > 0 {
		c := total + b.Cost(lines[start-1])
		if !b.underOverlap(c) {
			break
		}
		total = c
		start--
	}
	return lines[start:]
}

// Prefix returns the longest prefix of lines allowed as overlap context.
// The result aliases lines.
func (b Budget) Prefix(lines []string) []string {
	total := 0
	end := 0
	for end < len(lines) {
		c := total + b.Cost(lines[end])
		if !b.underOverlap(c) {
			break
		}
		total = c
		end++
	}
	return lines[:end]
}

func (b Budget) String() string {
	return fmt.Sprintf("%d %s", b.Limit, b.Kind)
}
