package persist

import (
	"context"
	"errors"
)

// ErrNotFound reports that no snapshot exists for the user.
var ErrNotFound = errors.New("snapshot not found")

// Bridge is the durable key-value slot the cart serializes into. Save is
// best-effort from the caller's point of view: the cart has already mutated
// in memory when the write happens, so errors are logged upstream and never
// surfaced to the user.
type Bridge interface {
	Save(ctx context.Context, userID string, payload []byte) error
	Load(ctx context.Context, userID string) ([]byte, error)
}
