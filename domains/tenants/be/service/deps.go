package service

import (
	"context"

	"github.com/google/uuid"
)

// SchemaManager prepares and tears down tenant application schemas in the
// database a tenant was placed on. Implementations must treat Ensure as
// idempotent: shared databases are ensured once per joining tenant.
type SchemaManager interface {
	// Ensure creates the database if the engine requires explicit creation
	// and brings the tenant application schema up to date.
	Ensure(ctx context.Context, databaseType, connString string) error
	// Seed writes the tenant's anchor rows into the prepared schema.
	Seed(ctx context.Context, databaseType, connString string, tenantID uuid.UUID, tenantName string) error
	// RemoveSeed deletes the tenant's rows, leaving other tenants untouched.
	RemoveSeed(ctx context.Context, databaseType, connString string, tenantID uuid.UUID) error
	// Drop removes the whole database. Only called for exclusively owned
	// databases.
	Drop(ctx context.Context, databaseType, connString string) error
}
