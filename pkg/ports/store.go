package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// SessionStore holds the state of live connections.
// Entries are created on connect and deleted on disconnect; nothing outlives a connection.
type SessionStore interface {
	// Save persists the state for a given connection ID.
	Save(ctx context.Context, connectionID string, state *domain.SessionState) error

	// Load retrieves the state for a given connection ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, connectionID string) (*domain.SessionState, error)

	// Delete removes the state for a given connection ID.
	Delete(ctx context.Context, connectionID string) error

	// List returns the IDs of the live connections.
	List(ctx context.Context) ([]string, error)
}
