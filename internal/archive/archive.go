// Package archive keeps every stock quote seen in ClickHouse.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/dense-analysis/boardfolio/internal/model"
)

// Config describes how to reach ClickHouse.
type Config struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// Enabled returns true when a ClickHouse host is configured.
func (cfg Config) Enabled() bool {
	return cfg.Host != ""
}

var createTableQuery = `
CREATE TABLE IF NOT EXISTS stock_quotes (
	time DateTime64(9, 'UTC'),
	symbol LowCardinality(String),
	name String,
	price Decimal(20, 4)
)
ENGINE = MergeTree
PARTITION BY toYYYYMM(time)
ORDER BY (symbol, time)
`

var insertQuery = `insert into stock_quotes (time, symbol, name, price)`

// Archive writes quotes to ClickHouse.
type Archive struct {
	conn driver.Conn
}

// Connect connects to ClickHouse and creates the quote table if needed.
func Connect(ctx context.Context, cfg Config) (*Archive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Second * 5,
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()

		return nil, err
	}

	if err := conn.Exec(ctx, createTableQuery); err != nil {
		conn.Close()

		return nil, fmt.Errorf("create stock_quotes: %w", err)
	}

	return &Archive{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (archive *Archive) Close() error {
	return archive.conn.Close()
}

// Record saves a single quote.
func (archive *Archive) Record(ctx context.Context, quote model.Quote) error {
	return archive.RecordBatch(ctx, []model.Quote{quote})
}

// RecordBatch saves many quotes in one insert.
func (archive *Archive) RecordBatch(ctx context.Context, quotes []model.Quote) error {
	if len(quotes) == 0 {
		return nil
	}

	batch, err := archive.conn.PrepareBatch(ctx, insertQuery)

	if err != nil {
		return err
	}

	for _, quote := range quotes {
		timestamp := quote.Time

		if timestamp.IsZero() {
			timestamp = time.Now()
		}

		if err := batch.Append(timestamp.UTC(), quote.Symbol, quote.Name, quote.Price); err != nil {
			return err
		}
	}

	return batch.Send()
}
