// Package cache defines a small key/value store for JSON-encodable values.
package cache

import (
	"context"
	"time"
)

// Cache stores values by key. A zero ttl keeps the value until deleted.
type Cache interface {
	// Get decodes the value for key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
