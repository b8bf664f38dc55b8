package session

import (
	"context"
	"time"
)

// Store is the TTL-capable key-value store session records live in.
// Implementations honor ttl on Set and report missing or expired keys as
// (nil, false, nil).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
