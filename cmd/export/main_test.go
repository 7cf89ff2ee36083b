package main

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/account"
	"github.com/dense-analysis/boardfolio/internal/database/databasetest"
	"github.com/dense-analysis/boardfolio/internal/post"
)

func readCSV(t *testing.T, path string) [][]string {
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	return records
}

func TestExportTables(t *testing.T) {
	conn := databasetest.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	user, err := account.NewStore(conn, decimal.RequireFromString("10000.00"), zap.NewNop()).
		Create(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	_, err = post.NewStore(conn, zap.NewNop()).Create(ctx, user.ID, "Hello, \"world\"")
	require.NoError(t, err)

	counts := map[string]int{}

	for _, source := range tables {
		count, err := exportTable(ctx, conn, dir, source)
		require.NoError(t, err)
		counts[source.filename] = count
	}

	assert.Equal(t, map[string]int{"accounts.csv": 1, "posts.csv": 1, "transactions.csv": 0}, counts)

	accounts := readCSV(t, filepath.Join(dir, "accounts.csv"))
	require.Len(t, accounts, 2)
	assert.Equal(t, []string{"user_id", "username", "email", "avatar", "cash", "created_at"}, accounts[0])
	assert.Equal(t, "alice", accounts[1][1])
	assert.Equal(t, "10000", accounts[1][4])

	posts := readCSV(t, filepath.Join(dir, "posts.csv"))
	require.Len(t, posts, 2)
	assert.Equal(t, "Hello, \"world\"", posts[1][2])

	transactions := readCSV(t, filepath.Join(dir, "transactions.csv"))
	assert.Len(t, transactions, 1)
}
