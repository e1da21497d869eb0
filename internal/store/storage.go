package store

import (
	"context"
	"fmt"
)

// SessionStorage is a key/value store scoped to one browsing session, the
// server-side counterpart of window.sessionStorage. Its contents live until
// the session ends: the cookie is dropped by the browser and the backend
// expires or clears the session.
type SessionStorage interface {
	// GetItem returns the value under key and whether it was present.
	GetItem(ctx context.Context, sessionID, key string) (string, bool, error)
	SetItem(ctx context.Context, sessionID, key, value string) error
	// Clear removes everything stored for the session.
	Clear(ctx context.Context, sessionID string) error
}

// validSessionID keeps session IDs usable as file names and map keys.
func validSessionID(id string) error {
	if id == "" || len(id) > 128 {
		return fmt.Errorf("invalid session id")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("invalid session id %q", id)
		}
	}
	return nil
}
