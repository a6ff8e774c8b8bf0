package service

import (
	"fmt"
	"strings"
	"time"

	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
)

// CreateInput holds everything needed to create a tenant, either with its
// own database (HasOwnDb true) or sharing one (HasOwnDb false).
type CreateInput struct {
	// TenantName is the name of the new tenant. Required.
	TenantName string
	// HasOwnDb must be set explicitly: true for an exclusive database,
	// false to share one.
	HasOwnDb *bool
	// DatabaseInfoName names the existing directory entry to join when
	// HasOwnDb is false.
	DatabaseInfoName string
	// ConnectionStringName selects the connection template for the new
	// entry when HasOwnDb is true.
	ConnectionStringName string
	// DbProviderShortName selects the provider (e.g. "SqlServer") for the
	// new entry when HasOwnDb is true.
	DbProviderShortName string
	// Region optionally hints at the nearest database server. Unused by the
	// default entry synthesis.
	Region string
	// Version optionally names the tenant's application version.
	Version string
}

// Validate checks the request shape before any side effect.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.TenantName) == "" {
		return fmt.Errorf("%w: tenant name is required", ErrValidation)
	}
	if in.HasOwnDb == nil {
		return fmt.Errorf("%w: HasOwnDb must be set to true (own database) or false (shares a database)", ErrValidation)
	}
	if !*in.HasOwnDb && strings.TrimSpace(in.DatabaseInfoName) == "" {
		return fmt.Errorf("%w: HasOwnDb is false so a DatabaseInfoName is required", ErrValidation)
	}
	if *in.HasOwnDb {
		if strings.TrimSpace(in.ConnectionStringName) == "" {
			return fmt.Errorf("%w: HasOwnDb is true so a ConnectionStringName is required", ErrValidation)
		}
		if strings.TrimSpace(in.DbProviderShortName) == "" {
			return fmt.Errorf("%w: HasOwnDb is true so a DbProviderShortName is required", ErrValidation)
		}
	}
	return nil
}

// FormDatabaseInformation synthesizes the directory entry for a tenant with
// its own database. The entry name combines a timestamp with the tenant
// name so concurrent signups cannot collide; the database name deliberately
// excludes the tenant name, since tenants rename and some engines cap
// database identifiers (Postgres at 63 bytes).
func FormDatabaseInformation(in CreateInput, now time.Time) shardingservice.DatabaseInformation {
	now = now.UTC()
	return shardingservice.DatabaseInformation{
		Name:           fmt.Sprintf("%s-%s", now.Format("20060102150405"), in.TenantName),
		DatabaseName:   fmt.Sprintf("%s-%03d", now.Format("20060102150405"), now.Nanosecond()/int(time.Millisecond)),
		ConnectionName: in.ConnectionStringName,
		DatabaseType:   in.DbProviderShortName,
	}
}
