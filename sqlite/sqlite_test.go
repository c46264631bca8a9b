package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/contentsync/sqlite"
	"github.com/stretchr/testify/require"
)

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		var count int
		err = db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM contents").Scan(&count)
		require.NoError(t, err)
		require.Zero(t, count)
	})

	t.Run("is idempotent across reopen", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		require.NoError(t, db.Open())
		_, err := db.ExecContext(context.Background(),
			"INSERT INTO contents (type, status, created_at, updated_at) VALUES ('post', 'draft', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db = sqlite.NewDB(dbPath)
		require.NoError(t, db.Open())
		defer db.Close()

		var count int
		err = db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM contents").Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		var journalMode string
		err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})
}
