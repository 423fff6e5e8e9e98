package providers

import (
	"context"

	"github.com/sooahkim/childcenter-chat/internal/domain/entities"
)

// SessionStore is the per-session conversational memory boundary. The chat
// core only reads and writes the name slot and appends turns; the store
// enforces the history bound and isolation between session keys.
type SessionStore interface {
	// GetName returns the remembered display name, or "" when unset.
	// Absence is not an error.
	GetName(ctx context.Context, sessionID string) (string, error)

	// SetName overwrites the remembered display name.
	SetName(ctx context.Context, sessionID, name string) error

	// AppendTurn appends one turn to the bounded history.
	AppendTurn(ctx context.Context, sessionID string, turn entities.Turn) error

	// History returns the retained turns, oldest first.
	History(ctx context.Context, sessionID string) ([]entities.Turn, error)
}
