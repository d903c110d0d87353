// Package carrier holds the translated tail that is fed back to the model
// as "previously converted" context for the next window.
package carrier

import (
	"slices"

	"github.com/flemzord/codeshift/internal/tokenizer"
)

// Tail is the bounded tail of the last accepted fragment. The zero value
// is the empty tail at the start of a file. A Tail is immutable: Advance
// returns a new value and never touches the old one, so a rejected window
// simply keeps using the Tail it started with.
type Tail struct {
	lines []string
}

// Lines returns a copy of the tail's lines, never nil.
func (t Tail) Lines() []string {
	if len(t.lines) == 0 {
		return []string{}
	}
	return slices.Clone(t.lines)
}

// Len returns the number of lines in the tail.
func (t Tail) Len() int { return len(t.lines) }

// Equal reports whether both tails hold the same lines.
func (t Tail) Equal(o Tail) bool { return slices.Equal(t.lines, o.lines) }

// Carrier bounds tails with the overlap budget.
type Carrier struct {
	overlap tokenizer.Budget
}

// New returns a Carrier keeping at most the overlap budget: the last K
// lines, or the longest suffix costing strictly less than the token limit.
func New(overlap tokenizer.Budget) Carrier {
	return Carrier{overlap: overlap}
}

// Advance returns the tail of fragment. An empty fragment leaves prev in
// place: the model produced nothing to continue from.
func (c Carrier) Advance(prev Tail, fragment []string) Tail {
	if len(fragment) == 0 {
		return prev
	}
	return Tail{lines: slices.Clone(c.overlap.Suffix(fragment))}
}
