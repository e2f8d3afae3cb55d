package ports

import (
	"context"
	"time"
)

// Cache is a key-value capability with per-entry TTL, used to memoize
// enrichment lookups. A ttl of zero or less means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
