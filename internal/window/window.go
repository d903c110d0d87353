// Package window splits a forward-only stream of source lines into a lazy
// sequence of overlapping windows.
//
// Each Window carries the lines to translate (Current) plus read-only
// context on both sides. Two sizing policies exist, selected by the kind
// of the window budget:
//
//   - lines: Current holds exactly N lines (the last window may hold
//     fewer), Prev is the last K emitted lines and Next the first K lines
//     of the following window.
//   - tokens: lines accumulate until the next one would exceed the token
//     budget, Prev is the longest suffix of emitted lines costing strictly
//     less than the overlap budget, and Next is the following window's
//     whole Current.
//
// Current windows partition the input: every line appears in exactly one
// Current, in order.
package window

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/flemzord/codeshift/internal/tokenizer"
)

// Window is one unit of translation work.
type Window struct {
	FileID string

	// Index is the zero-based ordinal of the window in its file.
	Index int

	// Start is the zero-based line number of Current[0].
	Start int

	Prev    []string
	Current []string
	Next    []string

	// Last marks the terminal window: Next is empty and every open scope
	// must be closed.
	Last bool
}

// End returns the line number one past Current.
func (w Window) End() int { return w.Start + len(w.Current) }

// Config sizes windows. Overlap must use the same kind as Size.
type Config struct {
	Size    tokenizer.Budget
	Overlap tokenizer.Budget
}

// Engine produces windows on demand. It reads the source once and keeps
// at most one window of lookahead in memory. An Engine is not safe for
// concurrent use.
type Engine struct {
	fileID  string
	src     *lineReader
	size    tokenizer.Budget
	overlap tokenizer.Budget

	primed    bool
	lookahead []string
	history   []string
	index     int
	start     int
	err       error
}

// New returns an Engine reading lines from r.
func New(fileID string, r io.Reader, cfg Config) *Engine {
	return &Engine{
		fileID:  fileID,
		src:     newLineReader(r),
		size:    cfg.Size,
		overlap: cfg.Overlap,
	}
}

// Next returns the next window, or io.EOF once the input is exhausted.
// An empty input yields io.EOF on the first call. After an error every
// later call returns the same error.
func (e *Engine) Next(ctx context.Context) (Window, error) {
	if err := ctx.Err(); err != nil {
		return Window{}, err
	}
	if e.err != nil {
		return Window{}, e.err
	}

	if !e.primed {
		e.primed = true
		if e.lookahead, e.err = e.readChunk(); e.err != nil {
			return Window{}, e.err
		}
	}

	cur := e.lookahead
	if len(cur) == 0 {
		e.err = io.EOF
		return Window{}, io.EOF
	}

	next, err := e.readChunk()
	if err != nil {
		e.err = err
		return Window{}, err
	}

	w := Window{
		FileID:  e.fileID,
		Index:   e.index,
		Start:   e.start,
		Prev:    slices.Clone(e.history),
		Current: cur,
		Next:    e.lookaheadContext(next),
		Last:    len(next) == 0,
	}

	e.history = slices.Clone(e.overlap.Suffix(append(e.history, cur...)))
	e.lookahead = next
	e.index++
	e.start += len(cur)
	return w, nil
}

// lookaheadContext derives Next from the following window's lines.
func (e *Engine) lookaheadContext(next []string) []string {
	if e.size.Kind == tokenizer.KindLines {
		return slices.Clone(e.overlap.Prefix(next))
	}
	return slices.Clone(next)
}

// readChunk reads the lines of one window. A line that alone exceeds the
// budget becomes a window of its own.
func (e *Engine) readChunk() ([]string, error) {
	var (
		chunk []string
		total int
	)
	for {
		line, ok, err := e.src.peek()
		if err != nil {
			return nil, fmt.Errorf("window: reading %s at line %d: %w", e.fileID, e.src.line+1, err)
		}
		if !ok {
			return chunk, nil
		}
		cost := e.size.Cost(line)
		if len(chunk) > 0 && !e.size.Fits(total+cost) {
			return chunk, nil
		}
		e.src.consume()
		chunk = append(chunk, line)
		total += cost
	}
}

// Collect drains an engine. It is meant for planning and tests; the
// translation driver pulls windows one at a time instead.
func Collect(ctx context.Context, e *Engine) ([]Window, error) {
	var out []Window
	for {
		w, err := e.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, w)
	}
}

// lineReader yields lines without their terminators and supports a
// one-line peek.
type lineReader struct {
	r       *bufio.Reader
	line    int
	pending *string
	eof     bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (lr *lineReader) peek() (string, bool, error) {
	if lr.pending != nil {
		return *lr.pending, true, nil
	}
	if lr.eof {
		return "", false, nil
	}

	s, err := lr.r.ReadString('\n')
	if err == io.EOF {
		lr.eof = true
		if s == "" {
			return "", false, nil
		}
	} else if err != nil {
		return "", false, err
	}

	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")
	lr.pending = &s
	return s, true, nil
}

func (lr *lineReader) consume() {
	lr.pending = nil
	lr.line++
}
