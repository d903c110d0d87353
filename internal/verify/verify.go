// Package verify inspects translated output without judging its meaning.
// It lexes a file with the chroma lexer for its extension and counts
// bracket punctuation, ignoring brackets inside strings and comments.
package verify

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Balance holds open-minus-close counts per bracket kind.
type Balance struct {
	Curly  int `json:"curly"`
	Round  int `json:"round"`
	Square int `json:"square"`

	// Underflow is set when a closer appeared with no matching opener.
	Underflow bool `json:"underflow,omitempty"`

	// Lexer names the chroma lexer used.
	Lexer string `json:"lexer"`
}

// Balanced reports whether every bracket kind is closed.
func (b Balance) Balanced() bool {
	return b.Curly == 0 && b.Round == 0 && b.Square == 0 && !b.Underflow
}

func (b Balance) String() string {
	if b.Balanced() {
		return "balanced"
	}
	var parts []string
	for _, p := range []struct {
		name string
		n    int
	}{{"{}", b.Curly}, {"()", b.Round}, {"[]", b.Square}} {
		if p.n != 0 {
			parts = append(parts, fmt.Sprintf("%s %+d", p.name, p.n))
		}
	}
	if b.Underflow {
		parts = append(parts, "stray closer")
	}
	return strings.Join(parts, ", ")
}

// Check lexes src with the lexer matching filename. ok is false when no
// lexer knows the file type.
func Check(filename, src string) (b Balance, ok bool) {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return Balance{}, false
	}
	lexer = chroma.Coalesce(lexer)
	b.Lexer = lexer.Config().Name

	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return b, false
	}
	for tok := it(); tok != chroma.EOF; tok = it() {
		if !tok.Type.InCategory(chroma.Punctuation) && tok.Type != chroma.Operator {
			continue
		}
		for _, r := range tok.Value {
			b.count(r)
		}
	}
	return b, true
}

func (b *Balance) count(r rune) {
	var n *int
	delta := 1
	switch r {
	case '{':
		n = &b.Curly
	case '}':
		n, delta = &b.Curly, -1
	case '(':
		n = &b.Round
	case ')':
		n, delta = &b.Round, -1
	case '[':
		n = &b.Square
	case ']':
		n, delta = &b.Square, -1
	default:
		return
	}
	*n += delta
	if *n < 0 {
		b.Underflow = true
	}
}

// CheckFile reads path and checks it.
func CheckFile(path string) (Balance, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Balance{}, false, fmt.Errorf("verify: %w", err)
	}
	b, ok := Check(path, string(data))
	return b, ok, nil
}

// DetectLanguage returns the language name chroma associates with a file
// extension such as ".vb", or "" when it knows none.
func DetectLanguage(ext string) string {
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	lexer := lexers.Match("file" + ext)
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}
