package storage

import (
	"context"
	"errors"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
)

var ErrNotFound = errors.New("cache entry not found")

// Store is a durable key to summary store. Put is an upsert that replaces the
// whole entry atomically.
type Store interface {
	Get(ctx context.Context, key string) (reference.CacheEntry, error)
	Put(ctx context.Context, entry reference.CacheEntry) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Close() error
}
