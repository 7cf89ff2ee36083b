// Archive current prices for every held stock into ClickHouse
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/app"
	"github.com/dense-analysis/boardfolio/internal/archive"
	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/env"
	"github.com/dense-analysis/boardfolio/internal/ledger"
	"github.com/dense-analysis/boardfolio/internal/logging"
	"github.com/dense-analysis/boardfolio/internal/model"
	"github.com/dense-analysis/boardfolio/internal/quote"
)

// readQuotes looks up each symbol in turn. Symbols which can't be priced are
// logged and skipped.
func readQuotes(ctx context.Context, quoter quote.Quoter, symbols []string, logger *zap.Logger) []model.Quote {
	quotes := make([]model.Quote, 0, len(symbols))

	for _, symbol := range symbols {
		found, err := quoter.Lookup(ctx, symbol)

		if err != nil {
			logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		quotes = append(quotes, *found)
	}

	return quotes
}

func main() {
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

	archiveConfig := cfg.ClickHouse.Archive()

	if !archiveConfig.Enabled() {
		logger.Fatal("CLICKHOUSE_HOST must be set to ingest quotes")
	}

	ctx := context.Background()
	conn, err := database.Connect(ctx, cfg.Database.Database())

	if err != nil {
		logger.Fatal("Connection error", zap.Error(err))
	}

	defer conn.Close()

	quoteArchive, err := archive.Connect(ctx, archiveConfig)

	if err != nil {
		logger.Fatal("ClickHouse connection error", zap.Error(err))
	}

	defer quoteArchive.Close()

	provider, err := app.NewProvider(cfg.Quote, logger)

	if err != nil {
		logger.Fatal("Quote provider error", zap.Error(err))
	}

	symbols, err := ledger.New(conn, provider, cfg.SeedBalance, logger).HeldSymbols(ctx)

	if err != nil {
		logger.Fatal("SQL error", zap.Error(err))
	}

	quotes := readQuotes(ctx, provider, symbols, logger)

	if err := quoteArchive.RecordBatch(ctx, quotes); err != nil {
		logger.Fatal("ClickHouse insert error", zap.Error(err))
	}

	logger.Info("Archived quotes", zap.Int("symbols", len(symbols)), zap.Int("quotes", len(quotes)))
}
