package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// OutputSchema returns the JSON schema of Output.
func OutputSchema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	return json.MarshalIndent(r.Reflect(&Output{}), "", "  ")
}

// SystemPrompt builds the instructions for translating from one language
// to another.
func SystemPrompt(sourceLang, targetLang string) (string, error) {
	schema, err := OutputSchema()
	if err != nil {
		return "", fmt.Errorf("translate: building output schema: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You translate %s source code into %s.\n", sourceLang, targetLang)
	b.WriteString("The file is too large to translate at once, so it arrives in windows. ")
	b.WriteString("Each user message is a JSON object describing one window of the file named by fileName:\n")
	fmt.Fprintf(&b, "- currentChunk: the %s lines to translate now, one array item per line.\n", sourceLang)
	fmt.Fprintf(&b, "- prevChunk: the %s lines right before currentChunk. Context only.\n", sourceLang)
	fmt.Fprintf(&b, "- prevChunkConverted: the last lines of your own %s output for the previous window. ", targetLang)
	b.WriteString("Continue exactly where it stops: keep its indentation and remember which blocks are still open.\n")
	fmt.Fprintf(&b, "- nextChunk: the %s lines right after currentChunk. Context only.\n", sourceLang)
	b.WriteString("- lastChunk: true when currentChunk ends the file.\n")
	b.WriteString("When nextChunk is empty or lastChunk is true this is the end of the file: close every open block, brace and scope.\n")
	b.WriteString("Otherwise leave blocks that continue into nextChunk open.\n")
	b.WriteString("Translate currentChunk and nothing else. Never repeat prevChunk or prevChunkConverted and never translate nextChunk.\n")
	b.WriteString("Answer with a single JSON object that matches this schema, with no prose and no code fence:\n")
	b.Write(schema)
	return b.String(), nil
}
