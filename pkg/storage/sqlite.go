package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devraulu/refscout/pkg/reference"
)

// SQLiteStore keeps the cache in a local database file. Timestamps are stored
// as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(db, DialectSQLite); err != nil {
		db.Close()
		return nil, err
	}

	// one writer at a time; callers queue instead of failing with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (reference.CacheEntry, error) {
	var (
		raw       string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT summary, expires_at
		FROM reference_cache
		WHERE key = ?`,
		key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reference.CacheEntry{}, ErrNotFound
	}
	if err != nil {
		return reference.CacheEntry{}, err
	}

	var summary reference.Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return reference.CacheEntry{}, err
	}

	return reference.CacheEntry{Key: key, Summary: summary, ExpiresAt: time.Unix(0, expiresAt).UTC()}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e reference.CacheEntry) error {
	raw, err := json.Marshal(e.Summary)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reference_cache (key, url, summary, summarized_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE
		SET url = excluded.url, summary = excluded.summary,
			summarized_at = excluded.summarized_at, expires_at = excluded.expires_at`,
		e.Key, e.Summary.URL, string(raw), e.Summary.SummarizedAt.UnixNano(), e.ExpiresAt.UnixNano(),
	)
	return err
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reference_cache WHERE expires_at < ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
