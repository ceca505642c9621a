package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
)

type CacheOptions struct {
	TTL     time.Duration
	Timeout time.Duration
	Now     func() time.Time
}

// ReferenceCache applies expiry on read and hides store failures: a broken or
// missing store reads as a miss and drops writes.
type ReferenceCache struct {
	store   Store
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewReferenceCache(store Store, opts CacheOptions) *ReferenceCache {
	if opts.TTL <= 0 {
		opts.TTL = reference.DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReferenceCache{
		store:   store,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		now:     opts.Now,
	}
}

func (c *ReferenceCache) Get(ctx context.Context, key string) (reference.Summary, bool) {
	if c.store == nil {
		return reference.Summary{}, false
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	e, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return reference.Summary{}, false
	}
	if err != nil {
		slog.Warn("cache read failed, treating as miss", slog.String("key", key), slog.Any("err", err))
		return reference.Summary{}, false
	}

	if e.Expired(c.now()) {
		slog.Debug("cache entry expired", slog.String("key", key), slog.Time("expires_at", e.ExpiresAt))
		return reference.Summary{}, false
	}

	return e.Summary, true
}

func (c *ReferenceCache) Put(ctx context.Context, key string, s reference.Summary) {
	c.PutTTL(ctx, key, s, c.ttl)
}

// PutTTL upserts s under key, expiring ttl after it was summarized.
func (c *ReferenceCache) PutTTL(ctx context.Context, key string, s reference.Summary, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if s.SummarizedAt.IsZero() {
		s.SummarizedAt = c.now()
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	err := c.store.Put(ctx, reference.CacheEntry{
		Key:       key,
		Summary:   s,
		ExpiresAt: s.SummarizedAt.Add(ttl),
	})
	if err != nil {
		slog.Warn("cache write failed, dropping", slog.String("key", key), slog.Any("err", err))
	}
}

// Compact removes expired entries. Reads never depend on it.
func (c *ReferenceCache) Compact(ctx context.Context) (int64, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.DeleteExpired(ctx, c.now())
}

func (c *ReferenceCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
