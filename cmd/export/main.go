// Export accounts, posts and transactions into CSV files for ClickHouse imports.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/env"
	"github.com/dense-analysis/boardfolio/internal/logging"
)

// table describes one CSV file to export.
type table struct {
	filename string
	header   []string
	query    string
	scan     func(row database.Row) ([]string, error)
}

var tables = []table{
	{
		filename: "accounts.csv",
		header:   []string{"user_id", "username", "email", "avatar", "cash", "created_at"},
		query:    "select id, username, email, avatar, cash, created_at from accounts order by id",
		scan: func(row database.Row) ([]string, error) {
			var id int64
			var username, email, avatar string
			var cash decimal.Decimal
			var createdAt time.Time

			if err := row.Scan(&id, &username, &email, &avatar, &cash, &createdAt); err != nil {
				return nil, err
			}

			return []string{formatID(id), username, email, avatar, cash.String(), formatTime(createdAt)}, nil
		},
	},
	{
		filename: "posts.csv",
		header:   []string{"post_id", "owner_id", "message", "posted_at"},
		query:    "select id, owner_id, message, posted_at from posts order by id",
		scan: func(row database.Row) ([]string, error) {
			var id, ownerID int64
			var message string
			var postedAt time.Time

			if err := row.Scan(&id, &ownerID, &message, &postedAt); err != nil {
				return nil, err
			}

			return []string{formatID(id), formatID(ownerID), message, formatTime(postedAt)}, nil
		},
	},
	{
		filename: "transactions.csv",
		header:   []string{"transaction_id", "user_id", "symbol", "name", "shares", "price", "cost", "transacted_at"},
		query: `select id, user_id, symbol, name, shares, price, cost, transacted_at
			from transactions
			order by id`,
		scan: func(row database.Row) ([]string, error) {
			var id, userID, shares int64
			var symbol, name string
			var price, cost decimal.Decimal
			var transactedAt time.Time

			if err := row.Scan(&id, &userID, &symbol, &name, &shares, &price, &cost, &transactedAt); err != nil {
				return nil, err
			}

			return []string{
				formatID(id),
				formatID(userID),
				symbol,
				name,
				strconv.FormatInt(shares, 10),
				price.String(),
				cost.String(),
				formatTime(transactedAt),
			}, nil
		},
	},
}

// exportTable writes the rows of one query to a CSV file, returning the
// number of rows written.
func exportTable(ctx context.Context, conn *database.Conn, outputDir string, source table) (int, error) {
	rows, err := conn.Query(ctx, source.query)

	if err != nil {
		return 0, err
	}

	defer rows.Close()

	writer, file, err := createCSV(filepath.Join(outputDir, source.filename))

	if err != nil {
		return 0, err
	}

	defer file.Close()

	if err := writer.Write(source.header); err != nil {
		return 0, err
	}

	count := 0

	for rows.Next() {
		record, err := source.scan(rows)

		if err != nil {
			return count, err
		}

		if err := writer.Write(record); err != nil {
			return count, err
		}

		count++
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return count, err
	}

	return count, rows.Err()
}

func createCSV(path string) (*csv.Writer, *os.File, error) {
	file, err := os.Create(path)

	if err != nil {
		return nil, nil, err
	}

	return csv.NewWriter(file), file, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func argOrDefault(position int, fallback string) string {
	if len(os.Args) > position {
		return os.Args[position]
	}

	return fallback
}

func main() {
	outputDir := argOrDefault(1, "export")
	cfg, err := env.Load()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	defer logger.Sync()

	ctx := context.Background()
	conn, err := database.Connect(ctx, cfg.Database.Database())

	if err != nil {
		logger.Fatal("Connection error", zap.Error(err))
	}

	defer conn.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Fatal("Error creating output directory", zap.Error(err))
	}

	for _, source := range tables {
		count, err := exportTable(ctx, conn, outputDir, source)

		if err != nil {
			logger.Fatal("Export error", zap.String("file", source.filename), zap.Error(err))
		}

		logger.Info("Exported", zap.String("file", source.filename), zap.Int("rows", count))
	}
}
