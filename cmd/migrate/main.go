// Migrate the Postgres database from one state to another
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"

	"github.com/dense-analysis/boardfolio/internal/database"
	"github.com/dense-analysis/boardfolio/internal/env"
	"github.com/dense-analysis/boardfolio/internal/logging"
)

// Migration is one numbered schema change with an optional reverse file.
type Migration struct {
	Number  int
	Forward string
	Reverse string
}

type MigrationExecutor struct {
	connection *pgx.Conn
	migrations map[int]Migration
	log        *zap.Logger
}

// loadMigrations reads files named like 0001_name.sql and
// 0001_name_reverse.sql from a directory.
func loadMigrations(directoryName string) (map[int]Migration, error) {
	entries, err := os.ReadDir(directoryName)

	if err != nil {
		return nil, err
	}

	migrations := map[int]Migration{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		prefix, _, _ := strings.Cut(entry.Name(), "_")
		number, err := strconv.Atoi(prefix)

		if err != nil || number < 1 {
			return nil, fmt.Errorf("invalid migration filename: %s", entry.Name())
		}

		migration := migrations[number]
		migration.Number = number
		path := filepath.Join(directoryName, entry.Name())

		if strings.HasSuffix(entry.Name(), "_reverse.sql") {
			migration.Reverse = path
		} else {
			migration.Forward = path
		}

		migrations[number] = migration
	}

	return migrations, nil
}

func NewMigrationExecutor(connection *pgx.Conn, directoryName string, logger *zap.Logger) (*MigrationExecutor, error) {
	migrations, err := loadMigrations(directoryName)

	if err != nil {
		return nil, err
	}

	return &MigrationExecutor{connection, migrations, logger}, nil
}

func (executor *MigrationExecutor) CreateMigrationTable(ctx context.Context) error {
	_, err := executor.connection.Exec(
		ctx,
		"CREATE TABLE IF NOT EXISTS boardfolio_migration (id serial, migration_number integer NOT NULL UNIQUE);",
	)

	return err
}

func (executor *MigrationExecutor) CurrentMigration(ctx context.Context) (int, error) {
	row := executor.connection.QueryRow(
		ctx,
		"SELECT COALESCE(MAX(migration_number), 0) FROM boardfolio_migration;",
	)

	var migrationNumber int32
	err := row.Scan(&migrationNumber)

	return int(migrationNumber), err
}

// applyMigration runs one migration in a batch, returning true when there is
// no file to apply and migrating should stop.
func (executor *MigrationExecutor) applyMigration(ctx context.Context, migrationNumber int, reverse bool) (bool, error) {
	migration := executor.migrations[migrationNumber]
	filename := migration.Forward

	if reverse {
		filename = migration.Reverse
	}

	if filename == "" {
		return true, nil
	}

	executor.log.Info("Applying migration", zap.String("file", filename), zap.Bool("reverse", reverse))

	content, err := os.ReadFile(filename)

	if err != nil {
		return false, err
	}

	batch := &pgx.Batch{}
	// NOTE: SQL functions in migration files won't work.
	for _, query := range strings.Split(string(content), ";\n") {
		if strings.TrimSpace(query) != "" {
			batch.Queue(query)
		}
	}

	if reverse {
		batch.Queue("DELETE FROM boardfolio_migration WHERE migration_number = $1;", migrationNumber)
	} else {
		batch.Queue(
			"INSERT INTO boardfolio_migration (migration_number) VALUES ($1) ON CONFLICT DO NOTHING;",
			migrationNumber,
		)
	}

	tx, err := executor.connection.Begin(ctx)

	if err != nil {
		return false, err
	}

	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()

			return false, fmt.Errorf("%s: %w", filename, err)
		}
	}

	if err := results.Close(); err != nil {
		return false, err
	}

	return false, tx.Commit(ctx)
}

func (executor *MigrationExecutor) ApplyMigrations(ctx context.Context, selectedMigrationNumber int) error {
	if err := executor.CreateMigrationTable(ctx); err != nil {
		return err
	}

	current, err := executor.CurrentMigration(ctx)

	if err != nil {
		return err
	}

	if selectedMigrationNumber < current {
		for i := current; i > selectedMigrationNumber; i-- {
			if stop, err := executor.applyMigration(ctx, i, true); err != nil || stop {
				return err
			}
		}

		return nil
	}

	for i := current + 1; i <= selectedMigrationNumber; i++ {
		if stop, err := executor.applyMigration(ctx, i, false); err != nil || stop {
			return err
		}
	}

	return nil
}

func parseSelectedMigration() int {
	selectedMigration := math.MaxInt32

	if len(os.Args) > 2 {
		fmt.Fprintf(os.Stderr, "Too many arguments\n")
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		var err error
		selectedMigration, err = strconv.Atoi(os.Args[1])

		if err != nil || selectedMigration < 0 {
			fmt.Fprintf(os.Stderr, "Invalid migration number: %s\n", os.Args[1])
			os.Exit(1)
		}
	}

	return selectedMigration
}

func main() {
	selectedMigration := parseSelectedMigration()
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

	dbConfig := cfg.Database.Database()

	if dbConfig.Driver != database.DriverPostgres {
		logger.Info("sqlite3 databases get their schema on connect, nothing to migrate")

		return
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbConfig.DSN())

	if err != nil {
		logger.Fatal("Connection error", zap.Error(err))
	}

	defer conn.Close(ctx)

	executor, err := NewMigrationExecutor(conn, "migrations", logger)

	if err != nil {
		logger.Fatal("Error loading migrations", zap.Error(err))
	}

	if err := executor.ApplyMigrations(ctx, selectedMigration); err != nil {
		logger.Fatal("Error applying migration", zap.Error(err))
	}
}
