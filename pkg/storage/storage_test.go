package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/refscout/pkg/reference"
)

var summarizedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleSummary(url string) reference.Summary {
	return reference.Summary{
		URL:             url,
		Title:           "Designing a URL Shortener",
		Highlights:      []string{"base62 codes", "read-heavy workload"},
		Assumptions:     []string{"100M URLs per month"},
		Components:      []string{"load balancer", "key-value store"},
		ConfidenceScore: 0.82,
		Snippet:         "How to design a URL shortener",
		SummarizedAt:    summarizedAt,
	}
}

func entry(key string, expires time.Time) reference.CacheEntry {
	return reference.CacheEntry{
		Key:       key,
		Summary:   sampleSummary("https://" + key),
		ExpiresAt: expires,
	}
}

// storeContract runs the behaviour every backend must share.
func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "example.com/nothing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		want := entry("example.com/a", summarizedAt.Add(time.Hour))
		require.NoError(t, s.Put(ctx, want))

		got, err := s.Get(ctx, want.Key)
		require.NoError(t, err)
		assert.Equal(t, want.Key, got.Key)
		assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
		assert.Equal(t, want.Summary.Highlights, got.Summary.Highlights)
		assert.Equal(t, want.Summary.Components, got.Summary.Components)
		assert.InDelta(t, want.Summary.ConfidenceScore, got.Summary.ConfidenceScore, 1e-9)
		assert.True(t, want.Summary.SummarizedAt.Equal(got.Summary.SummarizedAt))
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		first := entry("example.com/b", summarizedAt.Add(time.Hour))
		require.NoError(t, s.Put(ctx, first))

		second := entry("example.com/b", summarizedAt.Add(2*time.Hour))
		second.Summary.Title = "Updated"
		require.NoError(t, s.Put(ctx, second))

		got, err := s.Get(ctx, "example.com/b")
		require.NoError(t, err)
		assert.Equal(t, "Updated", got.Summary.Title)
		assert.True(t, second.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("delete expired", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, entry("example.com/old", summarizedAt.Add(-time.Hour))))
		require.NoError(t, s.Put(ctx, entry("example.com/fresh", summarizedAt.Add(48*time.Hour))))

		n, err := s.DeleteExpired(ctx, summarizedAt.Add(3*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		_, err = s.Get(ctx, "example.com/old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Get(ctx, "example.com/fresh")
		assert.NoError(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore())
}

func TestMemoryStoreCopiesSlices(t *testing.T) {
	s := NewMemoryStore()
	e := entry("example.com/c", summarizedAt.Add(time.Hour))
	require.NoError(t, s.Put(context.Background(), e))

	e.Summary.Highlights[0] = "mutated"

	got, err := s.Get(context.Background(), "example.com/c")
	require.NoError(t, err)
	assert.Equal(t, "base62 codes", got.Summary.Highlights[0])
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "refs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	storeContract(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, entry("example.com/persist", summarizedAt.Add(time.Hour))))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "example.com/persist")
	require.NoError(t, err)
	assert.Equal(t, "Designing a URL Shortener", got.Summary.Title)
}
