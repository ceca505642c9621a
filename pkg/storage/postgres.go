package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/devraulu/refscout/pkg/reference"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (reference.CacheEntry, error) {
	var (
		raw       []byte
		expiresAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT summary, expires_at
		FROM reference_cache
		WHERE key = $1`,
		key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reference.CacheEntry{}, ErrNotFound
	}
	if err != nil {
		return reference.CacheEntry{}, err
	}

	var summary reference.Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return reference.CacheEntry{}, err
	}

	return reference.CacheEntry{Key: key, Summary: summary, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *PostgresStore) Put(ctx context.Context, e reference.CacheEntry) error {
	raw, err := json.Marshal(e.Summary)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reference_cache (key, url, summary, summarized_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET url = EXCLUDED.url, summary = EXCLUDED.summary,
			summarized_at = EXCLUDED.summarized_at, expires_at = EXCLUDED.expires_at`,
		e.Key, e.Summary.URL, string(raw), e.Summary.SummarizedAt, e.ExpiresAt,
	)
	if err != nil {
		return err
	}

	slog.Debug("saved reference", slog.String("key", e.Key))
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reference_cache WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
