package providers

import "context"

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every key under the prefix (list invalidation).
	DeleteByPrefix(ctx context.Context, prefix string) error
	Exists(ctx context.Context, key string) (bool, error)
}
