package middleware

import (
	"context"

	"github.com/aretw0/stagegate/pkg/domain"
	"github.com/aretw0/stagegate/pkg/ports"
)

type redactionMiddleware struct {
	next ports.SessionStore
}

// NewRedactionMiddleware drops the raw user-text fragments slots were
// extracted from before a session is persisted. Values and confidences are
// kept; only the verbatim matches are removed.
func NewRedactionMiddleware() Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		return &redactionMiddleware{next: next}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, sessionID string, sc *domain.SessionContext) error {
	// The engine keeps working with sc, so redact a copy.
	cloned := sc.Clone()
	for name, slot := range cloned.Data.Slots {
		slot.RawMatch = ""
		cloned.Data.Slots[name] = slot
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, sessionID string) (*domain.SessionContext, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
