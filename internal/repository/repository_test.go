package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/opsdesk/shiftdesk/backend/internal/config"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5

	return NewRepository(cfg, db), mock
}
