package providers

import "context"

// CacheProvider is a lookaside byte cache. Used for intent classification
// results so repeated messages skip the generative fallback.
type CacheProvider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error
	Delete(ctx context.Context, key string) error
}
