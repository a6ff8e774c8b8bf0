package sqlassets

import "embed"

//go:embed schema/platform/shard_directory.sql
var ShardDirectorySQL string

//go:embed schema/platform/tenants.sql
var TenantsSQL string

// TenantSpaceMigrations holds the goose migrations applied to every
// per-tenant database.
//
//go:embed migrations/tenantspace/*.sql
var TenantSpaceMigrations embed.FS

// TenantSpaceMigrationsDir is the path inside TenantSpaceMigrations that
// goose should read.
const TenantSpaceMigrationsDir = "migrations/tenantspace"
