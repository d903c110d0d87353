package translate

import "context"

// Translator is the external collaborator: it receives one structured
// request and returns the complete response text. Streaming, if any, is
// buffered by the implementation; the driver parses the text once.
// Implementations must be safe for concurrent use by several files.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, req Request) (string, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
