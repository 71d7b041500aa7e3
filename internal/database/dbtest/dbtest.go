// Package dbtest opens throwaway migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/01moynul/pawshop-golang/internal/database"
)

// NewPool returns a pool over a fresh, fully migrated SQLite file.
func NewPool(t testing.TB, size int) *database.Pool {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_time_format=sqlite", filepath.Join(t.TempDir(), "pawshop.db"))
	db, dialect, err := database.Open(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, dialect))

	pool := database.NewPool(db, dialect, size, 5*time.Second)
	t.Cleanup(func() {
		pool.Close()
		_ = db.Close()
	})
	return pool
}
