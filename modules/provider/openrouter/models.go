package openrouter

// defaultContextWindow applies to models missing from contextWindows.
const defaultContextWindow = 128000

// contextWindows lists OpenRouter model identifiers whose window differs
// from the default or is commonly used for code translation.
var contextWindows = map[string]int{
	"openai/gpt-4o":                     128000,
	"openai/gpt-4o-mini":                128000,
	"openai/gpt-4.1":                    1047576,
	"openai/gpt-4.1-mini":               1047576,
	"openai/o3-mini":                    200000,
	"anthropic/claude-sonnet-4":         200000,
	"anthropic/claude-opus-4":           200000,
	"anthropic/claude-3.5-haiku":        200000,
	"google/gemini-2.0-flash":           1048576,
	"google/gemini-2.5-pro":             1048576,
	"deepseek/deepseek-chat":            65536,
	"qwen/qwen-2.5-coder-32b-instruct":  32768,
	"meta-llama/llama-3.1-70b-instruct": 131072,
	"mistralai/codestral-2501":          256000,
	"openrouter/auto":                   128000,
}

func lookupContextWindow(model string) int {
	if size, ok := contextWindows[model]; ok {
		return size
	}
	return defaultContextWindow
}
