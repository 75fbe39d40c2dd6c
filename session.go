package stagegate

import (
	"context"

	"github.com/aretw0/stagegate/pkg/domain"
)

// Session returns the stored context of sessionID, or domain.ErrSessionNotFound.
func (e *Engine) Session(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	return e.sessions.Load(ctx, sessionID)
}

// Reset discards a session; the next turn starts over at DISCOVERY.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	return e.sessions.Reset(ctx, sessionID)
}

// List returns the IDs of all stored sessions.
func (e *Engine) List(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// SafeFallback is the neutral reply shown when a turn cannot be answered. It
// is phrased in the session language when the session exists, else English.
func (e *Engine) SafeFallback(ctx context.Context, sessionID string) string {
	lang := domain.LanguageEnglish
	if sessionID != "" {
		if sc, err := e.sessions.Load(ctx, sessionID); err == nil {
			lang = sc.Data.Language
		}
	}
	return e.lex.Phrase(lang, "safe_fallback", nil)
}
