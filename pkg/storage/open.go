package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/devraulu/refscout/pkg/config"
)

// Open builds the configured backend. Postgres and SQLite are migrated on open.
func Open(cfg config.CacheConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sqlite":
		s, err := OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return s, nil
	case "postgres":
		pool, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := RunMigrations(pool, DialectPostgres); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case "redis":
		return OpenRedis(cfg.RedisAddr, cfg.GetTimeout()), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
