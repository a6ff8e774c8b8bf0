package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
)

// Resolver is the read path of the sharding subsystem: it turns a directory
// entry name into a ready-to-use, provider-correct connection string and
// answers the directory-wide queries used by administration surfaces.
type Resolver struct {
	store            Store
	templates        ConnectionTemplates
	registry         *provider.Registry
	links            TenantLinks
	defaultShardName string
}

// NewResolver constructs a Resolver with required dependencies.
func NewResolver(store Store, templates ConnectionTemplates, registry *provider.Registry, links TenantLinks, defaultShardName string) *Resolver {
	if store == nil {
		panic("sharding store is required")
	}
	if templates == nil {
		panic("connection templates are required")
	}
	if registry == nil {
		panic("provider registry is required")
	}
	if links == nil {
		panic("tenant links reader is required")
	}
	if defaultShardName == "" {
		panic("default shard name is required")
	}
	return &Resolver{
		store:            store,
		templates:        templates,
		registry:         registry,
		links:            links,
		defaultShardName: defaultShardName,
	}
}

// FormConnectionString resolves the entry with the given name to a complete
// connection string.
func (r *Resolver) FormConnectionString(ctx context.Context, databaseInfoName string) (string, error) {
	if databaseInfoName == "" {
		return "", fmt.Errorf("%w: empty database info name", ErrNotFound)
	}

	info, err := r.store.GetByName(ctx, databaseInfoName)
	if err != nil {
		return "", fmt.Errorf("database information %q: %w", databaseInfoName, err)
	}

	return r.buildFor(info)
}

// TestFormingConnectionString is the non-mutating dry run invoked before an
// entry is added or updated. It reports descriptive errors rather than
// panicking, since it backs interactive administration flows.
func (r *Resolver) TestFormingConnectionString(ctx context.Context, info DatabaseInformation) error {
	if err := info.ValidateForWrite(); err != nil {
		return err
	}
	_, err := r.buildFor(info)
	return err
}

func (r *Resolver) buildFor(info DatabaseInformation) (string, error) {
	template, ok := r.templates.Lookup(info.ConnectionName)
	if !ok {
		return "", fmt.Errorf("%w: %q required by entry %q", ErrMissingTemplate, info.ConnectionName, info.Name)
	}

	builder, ok := r.registry.Get(info.DatabaseType)
	if !ok {
		return "", fmt.Errorf("%w: %q on entry %q", ErrUnsupportedProvider, info.DatabaseType, info.Name)
	}

	if err := builder.ValidateTemplate(template); err != nil {
		return "", fmt.Errorf("template %q: %w", info.ConnectionName, err)
	}

	connString, err := builder.BuildConnectionString(info.DatabaseName, template)
	if err != nil {
		return "", fmt.Errorf("build connection string for %q: %w", info.Name, err)
	}
	return connString, nil
}

// GetAllPossibleShardingData lists every directory entry, sorted by name.
func (r *Resolver) GetAllPossibleShardingData(ctx context.Context) ([]DatabaseInformation, error) {
	return r.store.ListAll(ctx)
}

// GetConnectionStringNames lists the configured connection template names.
func (r *Resolver) GetConnectionStringNames() []string {
	return r.templates.Names()
}

// ProviderShortNames lists the registered provider tags.
func (r *Resolver) ProviderShortNames() []string {
	return r.registry.ShortNames()
}

// DatabaseInfoNamesWithTenantNames joins directory entries against the
// tenant registry. Entries with no tenants report a nil HasOwnDb; the
// default entry always reports shared since it also backs the registry's
// own data.
func (r *Resolver) DatabaseInfoNamesWithTenantNames(ctx context.Context) ([]DatabaseUsage, error) {
	entries, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	links, err := r.links.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenant links: %w", err)
	}

	grouped := make(map[string][]TenantLink)
	for _, link := range links {
		grouped[link.DatabaseInfoName] = append(grouped[link.DatabaseInfoName], link)
	}

	usages := make([]DatabaseUsage, 0, len(entries))
	for _, entry := range entries {
		usage := DatabaseUsage{DatabaseInfoName: entry.Name, TenantNames: []string{}}

		assigned := grouped[entry.Name]
		sort.Slice(assigned, func(i, j int) bool { return assigned[i].TenantName < assigned[j].TenantName })
		for _, link := range assigned {
			usage.TenantNames = append(usage.TenantNames, link.TenantName)
		}

		switch {
		case entry.Name == r.defaultShardName:
			shared := false
			usage.HasOwnDb = &shared
		case len(assigned) > 0:
			hasOwnDb := assigned[0].HasOwnDb
			usage.HasOwnDb = &hasOwnDb
		}

		usages = append(usages, usage)
	}

	return usages, nil
}
