package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsMock(t *testing.T) {
	t.Parallel()

	t.Run("applies every migration in order", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ledger_entries")).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_ledger_entries_recorded_at")).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		require.NoError(t, RunMigrations(context.Background(), mock))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		t.Parallel()

		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

		err = RunMigrations(context.Background(), mock)
		require.ErrorContains(t, err, "migration 1 failed")
		require.ErrorContains(t, err, "permission denied")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunMigrations(t *testing.T) {
	pool := TestDB(t)
	ctx := context.Background()

	t.Run("creates ledger table", func(t *testing.T) {
		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_name = 'ledger_entries'
			)`).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, RunMigrations(ctx, pool))
	})
}
