package sqlite

import (
	"context"
	"log/slog"

	"github.com/flemzord/codeshift/internal/translate"
)

// Translator memoizes the calls of another translate.Translator. Only
// responses that parse with a non-empty currentChunk are stored, so a
// rejected or empty window is always asked again. Cache failures are
// logged and never fail the window.
type Translator struct {
	next      translate.Translator
	store     *Store
	model     string
	namespace string
	logger    *slog.Logger
}

var _ translate.Translator = (*Translator)(nil)

// Wrap returns next behind the cache. model and system scope the keys so
// that changing either one misses.
func (s *Store) Wrap(next translate.Translator, model, system string, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Translator{
		next:      next,
		store:     s,
		model:     model,
		namespace: model + "\x00" + system,
		logger:    logger,
	}
}

// Translate implements translate.Translator.
func (t *Translator) Translate(ctx context.Context, req translate.Request) (string, error) {
	key, err := NewKey(t.namespace, req)
	if err != nil {
		t.logger.Warn("cache key failed", "file", req.FileName, "error", err)
		return t.next.Translate(ctx, req)
	}

	raw, ok, err := t.store.Get(ctx, key)
	switch {
	case err != nil:
		t.logger.Warn("cache read failed", "file", req.FileName, "error", err)
	case ok:
		t.logger.Debug("cache hit", "file", req.FileName)
		return raw, nil
	}

	raw, err = t.next.Translate(ctx, req)
	if err != nil {
		return "", err
	}
	if _, perr := translate.ParseOutput(raw); perr == nil {
		if err := t.store.Put(ctx, key, t.model, raw); err != nil {
			t.logger.Warn("cache write failed", "file", req.FileName, "error", err)
		}
	}
	return raw, nil
}
