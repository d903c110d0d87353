package main

// Compiled-in modules. Each registers itself with core in init.
import (
	_ "github.com/flemzord/codeshift/internal/gateway"
	_ "github.com/flemzord/codeshift/modules/cache/sqlite"
	_ "github.com/flemzord/codeshift/modules/provider/anthropic"
	_ "github.com/flemzord/codeshift/modules/provider/ollama"
	_ "github.com/flemzord/codeshift/modules/provider/openai"
	_ "github.com/flemzord/codeshift/modules/provider/openrouter"
)
