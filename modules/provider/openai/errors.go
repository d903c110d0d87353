package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/flemzord/codeshift/internal/provider"
)

// errAuth reports a rejected key. It is not retryable.
var errAuth = errors.New("openai: authentication failed")

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// mapHTTPError turns a non-2xx response into a provider sentinel.
func mapHTTPError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	code := ""
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg, code = apiErr.Error.Message, apiErr.Error.Code
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", errAuth, msg)
	case status == http.StatusBadRequest && (code == "context_length_exceeded" || strings.Contains(msg, "maximum context length")):
		return fmt.Errorf("%w: %s", provider.ErrContextLength, msg)
	case status >= 500:
		return fmt.Errorf("%w: HTTP %d: %s", provider.ErrProviderDown, status, msg)
	}
	return fmt.Errorf("openai: HTTP %d: %s", status, msg)
}

// mapConnectionError marks network failures as ErrProviderDown so the
// chain fails over. Context errors pass through.
func mapConnectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}
	return fmt.Errorf("openai: %w", err)
}
