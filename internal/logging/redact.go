// Package logging builds the process logger. Every record passes through
// a handler that masks provider credentials, so API keys read from the
// environment never reach log output.
package logging

import (
	"regexp"
	"strings"
	"sync"
)

// Mask replaces redacted values.
const Mask = "[redacted]"

// ServiceName is the core service under which the process Redactor is
// registered, so modules can add the credentials they load.
const ServiceName = "logging.redactor"

// keyPatterns match the API key formats of the supported providers.
var keyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`sk-(proj-)?[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]{16,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`),
}

// Redactor masks known key formats and registered secret values. It is
// safe for concurrent use.
type Redactor struct {
	mu      sync.RWMutex
	secrets []string
}

// NewRedactor returns a redactor masking the built-in key formats.
func NewRedactor() *Redactor { return &Redactor{} }

// AddSecret registers a literal value to mask. Values shorter than eight
// bytes are ignored to avoid masking ordinary words.
func (r *Redactor) AddSecret(v string) {
	if len(v) < 8 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets = append(r.secrets, v)
}

// Redact returns s with every secret masked.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	r.mu.RLock()
	secrets := r.secrets
	r.mu.RUnlock()

	for _, v := range secrets {
		s = strings.ReplaceAll(s, v, Mask)
	}
	for _, p := range keyPatterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}
