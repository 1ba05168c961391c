// Package database provides connection management and typed repository access
// for the maturityd cache store.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/maturity-tools/maturityd/db/migrations"
	"github.com/maturity-tools/maturityd/internal/config"

	// Drivers for database/sql.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names. The migration set and placeholder
// handling are shared; only DDL differs per dialect.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Context holds the open database handle and the dialect it speaks.
type Context struct {
	DB     *sql.DB
	Driver string
}

// CreateDatabase opens the store described by target and applies pending
// migrations. target may be empty (the default SQLite file under the data
// dir), ":memory:", a SQLite file path, or a postgres:// URL.
func CreateDatabase(target string) (*Context, error) {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return createPostgres(target)
	}
	return createSQLite(target)
}

func createSQLite(path string) (*Context, error) {
	if path == "" {
		path = config.GetDBPath()
	}

	useMemory := path == ":memory:"

	if !useMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	var dsn string
	if useMemory {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(ON)"
	} else {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", filepath.ToSlash(absPath))
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, DriverSQLite); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Context{DB: db, Driver: DriverSQLite}, nil
}

func createPostgres(url string) (*Context, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, DriverPostgres); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Context{DB: db, Driver: DriverPostgres}, nil
}

// CloseDatabase closes the database connection.
func CloseDatabase(ctx *Context) error {
	if ctx == nil || ctx.DB == nil {
		return nil
	}
	return ctx.DB.Close()
}

func runMigrations(db *sql.DB, driverName string) error {
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case DriverPostgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{})
	default:
		return fmt.Errorf("unsupported database driver: %s", driverName)
	}
	if err != nil {
		return fmt.Errorf("failed to initialise migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrations.Files, driverName)
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	defer func() {
		_ = sourceDriver.Close()
	}()

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, driverName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
