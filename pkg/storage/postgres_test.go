package storage

import (
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("REFSCOUT_TEST_DSN")
	if dsn == "" {
		t.Skip("REFSCOUT_TEST_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, DialectPostgres))

	_, err = db.Exec(`TRUNCATE reference_cache`)
	require.NoError(t, err)

	s := NewPostgresStore(db)
	t.Cleanup(func() { s.Close() })

	storeContract(t, s)
}
