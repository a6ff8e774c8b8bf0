package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/zenGate-Global/palmyra-sharding/database"
)

// DirectoryTable is the table holding shard directory entries.
const DirectoryTable = "shard_directory"

// ErrNotFound is returned when a directory row is absent.
var ErrNotFound = errors.New("directory row not found")

// ErrDuplicate is returned when an insert collides on the primary key.
var ErrDuplicate = errors.New("directory row already exists")

// DirectoryRecord is one shard_directory row.
type DirectoryRecord struct {
	Name           string `db:"name"`
	ConnectionName string `db:"connection_name"`
	DatabaseName   string `db:"database_name"`
	DatabaseType   string `db:"database_type"`
}

// DirectoryStore provides access to the shard_directory table.
type DirectoryStore struct {
	pool *pgxpool.Pool
}

// NewDirectoryStore creates the store and ensures the table exists.
func NewDirectoryStore(ctx context.Context, pool *pgxpool.Pool) (*DirectoryStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if _, err := pool.Exec(ctx, sqlassets.ShardDirectorySQL); err != nil {
		return nil, fmt.Errorf("ensure %s table: %w", DirectoryTable, err)
	}
	return &DirectoryStore{pool: pool}, nil
}

// List returns every row ordered by name.
func (s *DirectoryStore) List(ctx context.Context) ([]DirectoryRecord, error) {
	query := fmt.Sprintf(`SELECT name, connection_name, database_name, database_type
        FROM %s ORDER BY name`, DirectoryTable)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DirectoryRecord
	for rows.Next() {
		var rec DirectoryRecord
		if err := rows.Scan(&rec.Name, &rec.ConnectionName, &rec.DatabaseName, &rec.DatabaseType); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get fetches one row by name.
func (s *DirectoryStore) Get(ctx context.Context, name string) (DirectoryRecord, error) {
	query := fmt.Sprintf(`SELECT name, connection_name, database_name, database_type
        FROM %s WHERE name = $1`, DirectoryTable)

	var rec DirectoryRecord
	err := s.pool.QueryRow(ctx, query, name).
		Scan(&rec.Name, &rec.ConnectionName, &rec.DatabaseName, &rec.DatabaseType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DirectoryRecord{}, ErrNotFound
		}
		return DirectoryRecord{}, err
	}
	return rec, nil
}

// Insert adds a new row; the primary key enforces name uniqueness.
func (s *DirectoryStore) Insert(ctx context.Context, rec DirectoryRecord) error {
	query := fmt.Sprintf(`INSERT INTO %s (name, connection_name, database_name, database_type)
        VALUES ($1, $2, $3, $4)`, DirectoryTable)

	if _, err := s.pool.Exec(ctx, query, rec.Name, rec.ConnectionName, rec.DatabaseName, rec.DatabaseType); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update replaces the row with the same name.
func (s *DirectoryStore) Update(ctx context.Context, rec DirectoryRecord) error {
	query := fmt.Sprintf(`UPDATE %s SET connection_name = $2, database_name = $3, database_type = $4
        WHERE name = $1`, DirectoryTable)

	tag, err := s.pool.Exec(ctx, query, rec.Name, rec.ConnectionName, rec.DatabaseName, rec.DatabaseType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the row with the given name.
func (s *DirectoryStore) Delete(ctx context.Context, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE name = $1", DirectoryTable)

	tag, err := s.pool.Exec(ctx, query, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
