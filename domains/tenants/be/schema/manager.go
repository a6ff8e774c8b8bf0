// Package schema prepares tenant application databases: creating them where
// the engine needs it, migrating them with goose and seeding the tenant's
// anchor rows.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	sqlassets "github.com/zenGate-Global/palmyra-sharding/database"
	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
)

// ErrUnsupportedEngine is returned for database types the schema manager
// cannot migrate. Directory entries of such types still resolve, but
// tenants cannot be provisioned onto them.
var ErrUnsupportedEngine = errors.New("schema management not supported for database type")

// Manager implements the tenant schema lifecycle for PostgreSQL and Sqlite.
type Manager struct {
	logger *zap.Logger
}

// NewManager constructs a Manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("logger is required")
	}
	return &Manager{logger: logger}
}

// Ensure creates the database when absent and migrates it to the latest
// tenant-space schema version. Safe to call repeatedly.
func (m *Manager) Ensure(ctx context.Context, databaseType, connString string) error {
	switch databaseType {
	case provider.PostgresShortName:
		if err := m.ensurePostgresDatabase(ctx, connString); err != nil {
			return err
		}
	case provider.SqliteShortName:
		path, err := provider.SqliteFilePath(connString)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create sqlite data directory: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEngine, databaseType)
	}

	return m.migrate(ctx, databaseType, connString)
}

// Seed writes the tenant's anchor company row. The upsert keeps Seed
// retriable after a partial create.
func (m *Manager) Seed(ctx context.Context, databaseType, connString string, tenantID uuid.UUID, tenantName string) error {
	db, err := m.open(databaseType, connString)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `INSERT INTO companies (id, name, created_at) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		tenantID.String(), tenantName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed tenant company: %w", err)
	}
	return nil
}

// RemoveSeed deletes the tenant's rows and everything hanging off them.
// Other tenants sharing the database are untouched.
func (m *Manager) RemoveSeed(ctx context.Context, databaseType, connString string, tenantID uuid.UUID) error {
	db, err := m.open(databaseType, connString)
	if err != nil {
		return err
	}
	defer db.Close()

	queries := []string{
		`DELETE FROM line_items WHERE invoice_id IN (SELECT id FROM invoices WHERE company_id = $1)`,
		`DELETE FROM invoices WHERE company_id = $1`,
		`DELETE FROM companies WHERE id = $1`,
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query, tenantID.String()); err != nil {
			return fmt.Errorf("remove tenant rows: %w", err)
		}
	}
	return nil
}

// Drop removes the whole database. Postgres drops via a maintenance
// connection; Sqlite deletes the database file. Absent databases are not an
// error so deletion stays retriable.
func (m *Manager) Drop(ctx context.Context, databaseType, connString string) error {
	switch databaseType {
	case provider.PostgresShortName:
		return m.dropPostgresDatabase(ctx, connString)
	case provider.SqliteShortName:
		path, err := provider.SqliteFilePath(connString)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove sqlite database file: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedEngine, databaseType)
	}
}

func (m *Manager) migrate(ctx context.Context, databaseType, connString string) error {
	db, err := m.open(databaseType, connString)
	if err != nil {
		return err
	}
	defer db.Close()

	migrations, err := fs.Sub(sqlassets.TenantSpaceMigrations, sqlassets.TenantSpaceMigrationsDir)
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	// The per-instance provider lets postgres and sqlite tenants migrate in
	// the same process, which goose's package-level dialect cannot do.
	gooseProvider, err := goose.NewProvider(gooseDialect(databaseType), db, migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := gooseProvider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply tenant migrations: %w", err)
	}
	for _, result := range results {
		m.logger.Debug("applied tenant migration",
			zap.String("source", result.Source.Path),
			zap.Duration("duration", result.Duration))
	}
	return nil
}

func (m *Manager) open(databaseType, connString string) (*sql.DB, error) {
	switch databaseType {
	case provider.PostgresShortName:
		return sql.Open("pgx", connString)
	case provider.SqliteShortName:
		return sql.Open("sqlite", connString)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEngine, databaseType)
	}
}

func gooseDialect(databaseType string) goose.Dialect {
	if databaseType == provider.SqliteShortName {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// ensurePostgresDatabase creates the target database through a maintenance
// connection when it does not exist yet.
func (m *Manager) ensurePostgresDatabase(ctx context.Context, connString string) error {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parse postgres connection string: %w", err)
	}
	target := cfg.Database
	if target == "" {
		return errors.New("postgres connection string has no database name")
	}

	cfg.Database = "postgres"
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, target).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{target}.Sanitize()); err != nil {
		return fmt.Errorf("create database %q: %w", target, err)
	}
	m.logger.Info("created tenant database", zap.String("database", target))
	return nil
}

func (m *Manager) dropPostgresDatabase(ctx context.Context, connString string) error {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parse postgres connection string: %w", err)
	}
	target := cfg.Database
	if target == "" {
		return errors.New("postgres connection string has no database name")
	}

	cfg.Database = "postgres"
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	// FORCE disconnects lingering sessions, matching the retriable delete
	// contract.
	query := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{target}.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("drop database %q: %w", target, err)
	}
	m.logger.Info("dropped tenant database", zap.String("database", target))
	return nil
}
