package ports

import (
	"context"
	"time"
)

// SessionStore keeps serialized reading sessions for a limited time. Get
// returns domain.ErrSessionNotFound when the key is absent or expired.
type SessionStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
