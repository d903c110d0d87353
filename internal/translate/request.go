package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flemzord/codeshift/internal/carrier"
	"github.com/flemzord/codeshift/internal/tokenizer"
	"github.com/flemzord/codeshift/internal/window"
)

// Request is the structured input sent to the collaborator. Every slice
// is non-nil so that it encodes as [] rather than null.
type Request struct {
	FileName      string   `json:"fileName"`
	PrevConverted []string `json:"prevChunkConverted"`
	PrevSource    []string `json:"prevChunk"`
	Current       []string `json:"currentChunk"`
	NextSource    []string `json:"nextChunk"`
	Last          bool     `json:"lastChunk"`
}

// Output is the structured response. Only CurrentChunk is written out;
// the echoes are accepted and ignored.
type Output struct {
	PrevChunk    Lines `json:"prevChunk,omitempty" jsonschema:"description=Echo of prevChunk. Optional and ignored."`
	CurrentChunk Lines `json:"currentChunk" jsonschema:"required,description=The translation of currentChunk only. One array item per output line."`
	NextChunk    Lines `json:"nextChunk,omitempty" jsonschema:"description=Echo of nextChunk. Optional and ignored."`
}

// Lines is a list of output lines. It also decodes from a single string,
// which is split on newlines, because models sometimes answer that way.
type Lines []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lines) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = Lines{}
			return nil
		}
		*l = strings.Split(strings.TrimSuffix(s, "\n"), "\n")
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("expected an array of strings: %w", err)
	}
	*l = lines
	return nil
}

// BuildRequest assembles the request for w from the carried tail. The
// lookahead is clipped to the overlap budget (keeping at least one line so
// the model still sees that more input follows), which bounds the prompt
// under the token policy where the engine hands over a whole window.
func BuildRequest(tail carrier.Tail, w window.Window, overlap tokenizer.Budget) Request {
	next := overlap.Prefix(w.Next)
	if len(next) == 0 && len(w.Next) > 0 {
		next = w.Next[:1]
	}
	return Request{
		FileName:      w.FileID,
		PrevConverted: tail.Lines(),
		PrevSource:    nonNil(w.Prev),
		Current:       nonNil(w.Current),
		NextSource:    nonNil(next),
		Last:          w.Last,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
