package provider

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by connection builders.
var (
	// ErrMissingDatabaseName means neither the directory entry nor the
	// template names a database, so there is nothing to connect to.
	ErrMissingDatabaseName = errors.New("database name missing from entry and template")
	// ErrInvalidTemplate means the connection template cannot be parsed for
	// this provider.
	ErrInvalidTemplate = errors.New("invalid connection string template")
)

// Builder assembles provider-correct connection strings for one database
// engine. Implementations are pure: they never touch the network.
type Builder interface {
	// ShortName matches the DatabaseType tag on directory entries.
	ShortName() string
	// BuildConnectionString substitutes databaseName into the template. An
	// empty databaseName keeps whatever database the template already
	// specifies, or fails with ErrMissingDatabaseName if it specifies none.
	BuildConnectionString(databaseName, template string) (string, error)
	// ValidateTemplate is the dry-run check used before persisting a new
	// directory entry.
	ValidateTemplate(template string) error
	// DatabaseFromConnectionString re-parses a built connection string and
	// returns its database/catalog component.
	DatabaseFromConnectionString(connString string) (string, error)
}

// Registry is the closed set of builders known to the deployment, keyed by
// short name.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry builds a registry from the given builders.
func NewRegistry(builders ...Builder) *Registry {
	byName := make(map[string]Builder, len(builders))
	for _, b := range builders {
		if _, exists := byName[b.ShortName()]; exists {
			panic(fmt.Sprintf("duplicate connection builder %q", b.ShortName()))
		}
		byName[b.ShortName()] = b
	}
	return &Registry{builders: byName}
}

// Get returns the builder registered under the given short name.
func (r *Registry) Get(shortName string) (Builder, bool) {
	b, ok := r.builders[shortName]
	return b, ok
}

// ShortNames lists the registered provider tags, sorted.
func (r *Registry) ShortNames() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
