package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed sqlite_migrations/*.sql
var sqliteMigrationFS embed.FS

// OpenSQLite opens the SQLite database at path, configures it and applies
// any pending migrations. ":memory:" is accepted for throwaway databases.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps the pragmas below in effect and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runSQLiteMigrations(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("SQLite database ready", slog.String("path", path))
	return db, nil
}

// runSQLiteMigrations applies the embedded SQLite migrations through
// golang-migrate. The migrate instance is never closed: its database driver
// would close db along with it.
func runSQLiteMigrations(db *sql.DB, logger *slog.Logger) error {
	sourceDriver, err := iofs.New(sqliteMigrationFS, "sqlite_migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source driver: %w", err)
	}
	defer func() {
		if err := sourceDriver.Close(); err != nil {
			logger.Warn("Error closing migration source", slog.Any("error", err))
		}
	}()

	dbDriver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to initialize migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.Info("SQLite migrations up to date", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}
