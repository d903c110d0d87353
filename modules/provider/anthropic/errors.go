package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/flemzord/codeshift/internal/provider"
)

// mapError turns an SDK error into a provider sentinel so the chain can
// decide between failover and giving up.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *sdkanthropic.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", provider.ErrRateLimit, apiErr.Error())
	case 529, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", provider.ErrProviderDown, apiErr.Error())
	case http.StatusBadRequest:
		if isContextLengthError(apiErr) {
			return fmt.Errorf("%w: %s", provider.ErrContextLength, apiErr.Error())
		}
		return fmt.Errorf("anthropic: bad request: %w", err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("anthropic: authentication failed (HTTP %d): %w", apiErr.StatusCode, err)
	default:
		return fmt.Errorf("anthropic: HTTP %d: %w", apiErr.StatusCode, err)
	}
}

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// isContextLengthError reports whether a 400 complains about prompt size.
func isContextLengthError(apiErr *sdkanthropic.Error) bool {
	text := apiErr.RawJSON()
	var body apiErrorBody
	if json.Unmarshal([]byte(text), &body) == nil && body.Error.Type != "" {
		if body.Error.Type != "invalid_request_error" {
			return false
		}
		text = body.Error.Message
	}
	text = strings.ToLower(text)
	for _, hint := range []string{"prompt is too long", "context length", "too many tokens", "token limit"} {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}
