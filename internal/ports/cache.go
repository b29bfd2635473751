package ports

import (
	"context"
	"time"
)

// Cache defines a key-value table for cached response bodies.
// A ttl of zero keeps the entry until it is deleted.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
