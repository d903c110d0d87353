package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// ParseOutput interprets a complete response. The text may be bare JSON,
// JSON wrapped in a markdown code fence, or JSON surrounded by prose; JSONC
// comments and trailing commas are tolerated. A missing, null or empty
// currentChunk yields ErrEmptyResult. Anything else unusable yields
// ErrMalformedResponse.
func ParseOutput(raw string) (Output, error) {
	body := extractJSON([]byte(strings.TrimSpace(raw)))
	if len(body) == 0 {
		return Output{}, fmt.Errorf("%w: no JSON object in %d bytes of response", ErrMalformedResponse, len(raw))
	}

	// Only the first value is decoded; text after the object is ignored.
	var out Output
	if err := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(body))).Decode(&out); err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if len(out.CurrentChunk) == 0 {
		return out, ErrEmptyResult
	}
	return out, nil
}

// extractJSON returns the most plausible JSON object in src.
func extractJSON(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	if src[0] == '{' {
		return src
	}
	if fenced := fencedBlock(src); len(fenced) > 0 {
		return fenced
	}
	start := bytes.IndexByte(src, '{')
	end := bytes.LastIndexByte(src, '}')
	if start < 0 || end < start {
		return nil
	}
	return src[start : end+1]
}

// fencedBlock returns the body of the first fenced code block whose info
// string is empty or names JSON.
func fencedBlock(src []byte) []byte {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var body []byte
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(string(block.Language(src)))
		if lang != "" && lang != "json" && lang != "jsonc" {
			return ast.WalkSkipChildren, nil
		}
		var buf bytes.Buffer
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			buf.Write(segment.Value(src))
		}
		body = bytes.TrimSpace(buf.Bytes())
		return ast.WalkStop, nil
	})
	return body
}
