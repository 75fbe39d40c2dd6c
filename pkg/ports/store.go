package ports

import (
	"context"

	"github.com/aretw0/stagegate/pkg/domain"
)

// SessionStore persists the stage context of each conversation.
// Implementations must return copies: a caller mutating a loaded context must
// not affect the stored one until it is saved again.
type SessionStore interface {
	// Save persists the context for a given session ID.
	Save(ctx context.Context, sessionID string, sc *domain.SessionContext) error

	// Load retrieves the context for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.SessionContext, error)

	// Delete removes the context for a given session ID. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
