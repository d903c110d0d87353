package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// authMiddleware accepts a matching Bearer token or Basic credentials.
// Attempts beyond limiter's rate get 429 before any comparison.
func authMiddleware(cfg AuthConfig, limiter *rate.Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			if authorized(cfg, r) {
				next.ServeHTTP(w, r)
				return
			}
			if logger != nil {
				logger.Warn("gateway auth failed", "remote_addr", r.RemoteAddr, "method", r.Method, "path", r.URL.Path)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

func authorized(cfg AuthConfig, r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}
	if cfg.BearerToken != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && constantTimeEqual(token, cfg.BearerToken) {
			return true
		}
	}
	if cfg.BasicUser != "" && cfg.BasicPass != "" {
		user, pass, ok := r.BasicAuth()
		if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
			return true
		}
	}
	return false
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
