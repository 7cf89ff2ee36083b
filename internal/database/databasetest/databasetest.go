// Package databasetest opens throwaway sqlite3 databases for tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/stretchr/testify/require"
)

// New returns a connection to a fresh in-memory database with the full schema.
func New(t *testing.T) *database.Conn {
	t.Helper()

	conn, err := database.Connect(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   ":memory:",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
	})

	return conn
}
