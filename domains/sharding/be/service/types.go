package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the sharding services.
var (
	ErrNotFound            = errors.New("database information not found")
	ErrDuplicateName       = errors.New("database information name already used")
	ErrValidation          = errors.New("invalid database information")
	ErrMissingTemplate     = errors.New("connection string name not configured")
	ErrUnsupportedProvider = errors.New("database provider not supported")
)

// DatabaseInformation is one directory entry describing a physical database
// tenants may use.
type DatabaseInformation struct {
	// Name uniquely identifies the entry across the directory.
	Name string
	// ConnectionName references a connection-string template held by
	// configuration.
	ConnectionName string
	// DatabaseName is the concrete database, catalog or file name to
	// substitute into the template. Empty means the template's own database
	// is used.
	DatabaseName string
	// DatabaseType selects the connection builder (e.g. "SqlServer",
	// "PostgreSQL", "Sqlite").
	DatabaseType string
}

// ValidateForWrite checks the fields required for Add and Update. Removal
// tolerates a bare Name.
func (d DatabaseInformation) ValidateForWrite() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(d.ConnectionName) == "" {
		return fmt.Errorf("%w: connection name is required", ErrValidation)
	}
	if strings.TrimSpace(d.DatabaseType) == "" {
		return fmt.Errorf("%w: database type is required", ErrValidation)
	}
	return nil
}

// Store abstracts persistence of the shard directory. All implementations
// return entries from ListAll sorted by Name so administrative listings stay
// deterministic.
//
// Mutations issued by the tenant lifecycle coordinator run inside the
// distributed lock; direct administrative callers may mutate unlocked but
// are racy against concurrent tenant creation.
type Store interface {
	ListAll(ctx context.Context) ([]DatabaseInformation, error)
	GetByName(ctx context.Context, name string) (DatabaseInformation, error)
	Add(ctx context.Context, info DatabaseInformation) error
	Update(ctx context.Context, info DatabaseInformation) error
	Remove(ctx context.Context, name string) error
}

// TenantLink is the tenant-to-entry linkage read from the tenant registry.
type TenantLink struct {
	TenantName       string
	DatabaseInfoName string
	HasOwnDb         bool
}

// TenantLinks exposes the tenant registry's linkage, owned by the tenant
// admin collaborator.
type TenantLinks interface {
	ListLinks(ctx context.Context) ([]TenantLink, error)
}

// ConnectionTemplates is the named connection-string lookup supplied by
// configuration.
type ConnectionTemplates interface {
	Lookup(name string) (string, bool)
	Names() []string
}

// DatabaseUsage reports one directory entry with the tenants assigned to it.
// HasOwnDb is nil for entries with no tenants, except the default entry
// which is always shared.
type DatabaseUsage struct {
	DatabaseInfoName string
	HasOwnDb         *bool
	TenantNames      []string
}
