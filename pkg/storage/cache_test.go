package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/refscout/pkg/config"
	"github.com/devraulu/refscout/pkg/reference"
)

type brokenStore struct{}

var errBroken = errors.New("disk on fire")

func (brokenStore) Get(context.Context, string) (reference.CacheEntry, error) {
	return reference.CacheEntry{}, errBroken
}
func (brokenStore) Put(context.Context, reference.CacheEntry) error { return errBroken }
func (brokenStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errBroken
}
func (brokenStore) Close() error { return nil }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestReferenceCacheHitAndExpiry(t *testing.T) {
	clk := &clock{now: summarizedAt}
	c := NewReferenceCache(NewMemoryStore(), CacheOptions{TTL: time.Hour, Now: clk.Now})
	ctx := context.Background()

	c.Put(ctx, "example.com/a", sampleSummary("https://example.com/a"))

	got, ok := c.Get(ctx, "example.com/a")
	require.True(t, ok)
	assert.Equal(t, "Designing a URL Shortener", got.Title)

	clk.Advance(time.Hour)
	_, ok = c.Get(ctx, "example.com/a")
	assert.True(t, ok, "entry is valid up to and including expires_at")

	clk.Advance(time.Second)
	_, ok = c.Get(ctx, "example.com/a")
	assert.False(t, ok)
}

func TestReferenceCacheExpiryCountsFromSummarizedAt(t *testing.T) {
	clk := &clock{now: summarizedAt.Add(30 * time.Minute)}
	store := NewMemoryStore()
	c := NewReferenceCache(store, CacheOptions{TTL: time.Hour, Now: clk.Now})

	c.Put(context.Background(), "k", sampleSummary("https://example.com/k"))

	e, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, summarizedAt.Add(time.Hour), e.ExpiresAt)
}

func TestReferenceCachePutStampsMissingSummarizedAt(t *testing.T) {
	clk := &clock{now: summarizedAt}
	store := NewMemoryStore()
	c := NewReferenceCache(store, CacheOptions{TTL: time.Minute, Now: clk.Now})

	s := sampleSummary("https://example.com/z")
	s.SummarizedAt = time.Time{}
	c.Put(context.Background(), "z", s)

	e, err := store.Get(context.Background(), "z")
	require.NoError(t, err)
	assert.Equal(t, summarizedAt, e.Summary.SummarizedAt)
	assert.Equal(t, summarizedAt.Add(time.Minute), e.ExpiresAt)
}

func TestReferenceCacheDegradesOnStoreFailure(t *testing.T) {
	c := NewReferenceCache(brokenStore{}, CacheOptions{})
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.Put(ctx, "k", sampleSummary("https://example.com"))
	})
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestReferenceCacheNilStore(t *testing.T) {
	c := NewReferenceCache(nil, CacheOptions{})
	ctx := context.Background()

	c.Put(ctx, "k", sampleSummary("https://example.com"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	n, err := c.Compact(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestReferenceCacheCompact(t *testing.T) {
	clk := &clock{now: summarizedAt}
	store := NewMemoryStore()
	c := NewReferenceCache(store, CacheOptions{TTL: time.Hour, Now: clk.Now})
	ctx := context.Background()

	c.Put(ctx, "a", sampleSummary("https://example.com/a"))
	c.PutTTL(ctx, "b", sampleSummary("https://example.com/b"), 10*time.Hour)

	clk.Advance(2 * time.Hour)
	n, err := c.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
}

func TestReferenceCacheConcurrentAccess(t *testing.T) {
	c := NewReferenceCache(NewMemoryStore(), CacheOptions{TTL: time.Hour, Now: func() time.Time { return summarizedAt }})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("example.com/%d", i%4)
			c.Put(ctx, key, sampleSummary("https://"+key))
			_, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		_, ok := c.Get(ctx, fmt.Sprintf("example.com/%d", i))
		assert.True(t, ok)
	}
}

func TestRedisUnreachableDegradesToMiss(t *testing.T) {
	store := OpenRedis("127.0.0.1:1", 100*time.Millisecond)
	t.Cleanup(func() { store.Close() })

	c := NewReferenceCache(store, CacheOptions{Timeout: 500 * time.Millisecond})
	ctx := context.Background()

	c.Put(ctx, "k", sampleSummary("https://example.com"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestOpenBackends(t *testing.T) {
	s, err := Open(config.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(config.CacheConfig{Backend: "sqlite", Path: t.TempDir() + "/c.db"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(config.CacheConfig{Backend: "mongo"})
	assert.Error(t, err)
}
