package session

import (
	"context"
	"errors"
)

var (
	// ErrNoSession signals that no token is held and the caller must route
	// the user back to authentication instead of touching the network.
	ErrNoSession = errors.New("session: no active session")

	ErrInvalidStoreDriver = errors.New("session: invalid store driver")
	ErrInvalidConfig      = errors.New("session: invalid store config")
)

// Store persists the session token between reads. Drivers differ only in
// where the token lives; none of them interpret it.
type Store interface {
	// Load returns the stored token. A missing token is ("", nil), not an error.
	Load(ctx context.Context) (string, error)

	// Save stores the token, replacing any previous one.
	Save(ctx context.Context, token string) error

	// Clear removes the stored token. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error

	// Close releases driver resources.
	Close() error
}
