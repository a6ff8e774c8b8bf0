package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/zenGate-Global/palmyra-sharding/database"
	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
)

// PostgresRegistry persists tenants in the platform database.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates the registry and ensures the tenants table
// exists.
func NewPostgresRegistry(ctx context.Context, pool *pgxpool.Pool) (*PostgresRegistry, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if _, err := pool.Exec(ctx, sqlassets.TenantsSQL); err != nil {
		return nil, fmt.Errorf("ensure tenants table: %w", err)
	}
	return &PostgresRegistry{pool: pool}, nil
}

func (r *PostgresRegistry) ListAll(ctx context.Context) ([]service.Tenant, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_id, tenant_name, database_info_name, has_own_db, created_at
        FROM tenants ORDER BY tenant_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []service.Tenant
	for rows.Next() {
		var t service.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.DatabaseInfoName, &t.HasOwnDb, &t.CreatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *PostgresRegistry) GetByID(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	var t service.Tenant
	err := r.pool.QueryRow(ctx, `SELECT tenant_id, tenant_name, database_info_name, has_own_db, created_at
        FROM tenants WHERE tenant_id = $1`, id).
		Scan(&t.ID, &t.Name, &t.DatabaseInfoName, &t.HasOwnDb, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Tenant{}, fmt.Errorf("%w: %s", service.ErrTenantNotFound, id)
		}
		return service.Tenant{}, err
	}
	return t, nil
}

func (r *PostgresRegistry) GetByName(ctx context.Context, name string) (service.Tenant, error) {
	var t service.Tenant
	err := r.pool.QueryRow(ctx, `SELECT tenant_id, tenant_name, database_info_name, has_own_db, created_at
        FROM tenants WHERE tenant_name = $1`, name).
		Scan(&t.ID, &t.Name, &t.DatabaseInfoName, &t.HasOwnDb, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Tenant{}, fmt.Errorf("%w: %q", service.ErrTenantNotFound, name)
		}
		return service.Tenant{}, err
	}
	return t, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, tenant service.Tenant) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO tenants (tenant_id, tenant_name, database_info_name, has_own_db, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		tenant.ID, tenant.Name, tenant.DatabaseInfoName, tenant.HasOwnDb, tenant.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %q", service.ErrDuplicateTenantName, tenant.Name)
		}
		return err
	}
	return nil
}

func (r *PostgresRegistry) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE tenant_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", service.ErrTenantNotFound, id)
	}
	return nil
}

// ListLinks reports tenant-to-entry linkage for the shard directory.
func (r *PostgresRegistry) ListLinks(ctx context.Context) ([]shardingservice.TenantLink, error) {
	rows, err := r.pool.Query(ctx, `SELECT tenant_name, database_info_name, has_own_db
        FROM tenants ORDER BY tenant_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []shardingservice.TenantLink
	for rows.Next() {
		var link shardingservice.TenantLink
		if err := rows.Scan(&link.TenantName, &link.DatabaseInfoName, &link.HasOwnDb); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Ensure interface compliance.
var (
	_ service.Registry            = (*PostgresRegistry)(nil)
	_ shardingservice.TenantLinks = (*PostgresRegistry)(nil)
)
