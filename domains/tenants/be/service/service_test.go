package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
	shardingrepo "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/repo"
	shardingservice "github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/repo"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/service"
)

type stubTemplates map[string]string

func (s stubTemplates) Lookup(name string) (string, bool) {
	template, ok := s[name]
	return template, ok
}

func (s stubTemplates) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type passLocker struct{}

func (passLocker) RunExclusive(ctx context.Context, name string, fn func(context.Context) error) error {
	return fn(ctx)
}

// stubSchema records schema calls and injects failures at chosen steps.
type stubSchema struct {
	mu          sync.Mutex
	ensured     []string
	seeded      []uuid.UUID
	seedRemoved []uuid.UUID
	dropped     []string
	failEnsure  error
	failSeed    error
}

func (s *stubSchema) Ensure(ctx context.Context, databaseType, connString string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEnsure != nil {
		return s.failEnsure
	}
	s.ensured = append(s.ensured, connString)
	return nil
}

func (s *stubSchema) Seed(ctx context.Context, databaseType, connString string, tenantID uuid.UUID, tenantName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSeed != nil {
		return s.failSeed
	}
	s.seeded = append(s.seeded, tenantID)
	return nil
}

func (s *stubSchema) RemoveSeed(ctx context.Context, databaseType, connString string, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedRemoved = append(s.seedRemoved, tenantID)
	return nil
}

func (s *stubSchema) Drop(ctx context.Context, databaseType, connString string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped = append(s.dropped, connString)
	return nil
}

type fixture struct {
	service  *service.Service
	store    *shardingrepo.MemoryStore
	registry *repo.MemoryRegistry
	schema   *stubSchema
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := shardingrepo.NewMemoryStore()
	registry := repo.NewMemoryRegistry()
	schema := &stubSchema{}
	logger := zap.NewNop()

	templates := stubTemplates{
		"DefaultConnection": "file:{AppDir}/main.sqlite",
		"OtherConnection":   "file:{AppDir}/other.sqlite",
	}
	builders := provider.NewRegistry(
		provider.NewSqlServer(),
		provider.NewPostgres(),
		provider.NewSqlite(t.TempDir(), ""),
	)

	resolver := shardingservice.NewResolver(store, templates, builders, registry, "Default Database")
	directory := shardingservice.NewDirectory(store, resolver, registry, passLocker{}, logger)

	require.NoError(t, store.Add(context.Background(), shardingservice.DatabaseInformation{
		Name:           "Default Database",
		ConnectionName: "DefaultConnection",
		DatabaseType:   provider.SqliteShortName,
	}))

	return &fixture{
		service:  service.NewService(registry, directory, resolver, store, schema, logger),
		store:    store,
		registry: registry,
		schema:   schema,
	}
}

func boolPtr(v bool) *bool { return &v }

func TestCreateTenantSharedDatabase(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	tenant, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:       "Pets Ltd",
		HasOwnDb:         boolPtr(false),
		DatabaseInfoName: "Default Database",
	})
	require.NoError(t, err)
	require.Equal(t, "Pets Ltd", tenant.Name)
	require.Equal(t, "Default Database", tenant.DatabaseInfoName)
	require.False(t, tenant.HasOwnDb)
	require.NotEqual(t, uuid.Nil, tenant.ID)

	stored, err := fix.registry.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	require.Equal(t, tenant.Name, stored.Name)

	require.Len(t, fix.schema.ensured, 1)
	require.Equal(t, []uuid.UUID{tenant.ID}, fix.schema.seeded)

	entries, err := fix.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "joining a shared entry must not add directory entries")
}

func TestCreateTenantOwnDatabase(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	tenant, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Big Corp",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.NoError(t, err)
	require.True(t, tenant.HasOwnDb)
	require.True(t, strings.HasSuffix(tenant.DatabaseInfoName, "-Big Corp"),
		"entry name %q should end with the tenant name", tenant.DatabaseInfoName)

	entry, err := fix.store.GetByName(ctx, tenant.DatabaseInfoName)
	require.NoError(t, err)
	require.Equal(t, provider.SqliteShortName, entry.DatabaseType)
	require.Equal(t, "OtherConnection", entry.ConnectionName)
	require.NotEmpty(t, entry.DatabaseName)
	require.NotContains(t, entry.DatabaseName, "Big Corp",
		"database names must not embed the tenant name")

	require.Len(t, fix.schema.ensured, 1)
	require.Len(t, fix.schema.seeded, 1)
}

func TestCreateTenantSchemaFailureCompensates(t *testing.T) {
	fix := newFixture(t)
	fix.schema.failEnsure = errors.New("migrations exploded")
	ctx := context.Background()

	_, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Doomed Inc",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.ErrorIs(t, err, service.ErrSchemaInit)
	require.ErrorContains(t, err, "migrations exploded")

	entries, listErr := fix.store.ListAll(ctx)
	require.NoError(t, listErr)
	require.Len(t, entries, 1, "the synthesized entry must be removed on failure")

	tenants, listErr := fix.registry.ListAll(ctx)
	require.NoError(t, listErr)
	require.Empty(t, tenants)

	require.Len(t, fix.schema.dropped, 1, "the half-created database must be dropped")
}

func TestCreateTenantSeedFailureCompensates(t *testing.T) {
	fix := newFixture(t)
	fix.schema.failSeed = errors.New("seed exploded")
	ctx := context.Background()

	_, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Doomed Inc",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.ErrorIs(t, err, service.ErrSchemaInit)

	entries, listErr := fix.store.ListAll(ctx)
	require.NoError(t, listErr)
	require.Len(t, entries, 1)
	require.Len(t, fix.schema.dropped, 1)
}

func TestCreateTenantDuplicateName(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	input := service.CreateInput{
		TenantName:       "Pets Ltd",
		HasOwnDb:         boolPtr(false),
		DatabaseInfoName: "Default Database",
	}
	_, err := fix.service.CreateTenantDatabase(ctx, input)
	require.NoError(t, err)

	_, err = fix.service.CreateTenantDatabase(ctx, input)
	require.ErrorIs(t, err, service.ErrDuplicateTenantName)

	tenants, err := fix.registry.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
}

func TestCreateTenantValidation(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	cases := map[string]service.CreateInput{
		"missing tenant name": {
			HasOwnDb:         boolPtr(false),
			DatabaseInfoName: "Default Database",
		},
		"HasOwnDb not set": {
			TenantName:       "Pets Ltd",
			DatabaseInfoName: "Default Database",
		},
		"shared without entry name": {
			TenantName: "Pets Ltd",
			HasOwnDb:   boolPtr(false),
		},
		"own db without connection name": {
			TenantName:          "Pets Ltd",
			HasOwnDb:            boolPtr(true),
			DbProviderShortName: provider.SqliteShortName,
		},
		"own db without provider": {
			TenantName:           "Pets Ltd",
			HasOwnDb:             boolPtr(true),
			ConnectionStringName: "OtherConnection",
		},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fix.service.CreateTenantDatabase(ctx, input)
			require.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestCreateTenantUnknownSharedEntry(t *testing.T) {
	fix := newFixture(t)

	_, err := fix.service.CreateTenantDatabase(context.Background(), service.CreateInput{
		TenantName:       "Pets Ltd",
		HasOwnDb:         boolPtr(false),
		DatabaseInfoName: "No Such Entry",
	})
	require.ErrorIs(t, err, shardingservice.ErrNotFound)
}

func TestCreateTenantRefusesOwnedEntry(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	owner, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Big Corp",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.NoError(t, err)

	_, err = fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:       "Freeloader",
		HasOwnDb:         boolPtr(false),
		DatabaseInfoName: owner.DatabaseInfoName,
	})
	require.ErrorIs(t, err, service.ErrValidation)
	require.ErrorContains(t, err, "exclusively owned")
}

func TestDeleteTenantOwnDatabase(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	tenant, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Big Corp",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.NoError(t, err)

	require.NoError(t, fix.service.DeleteTenantDatabase(ctx, tenant.ID))

	_, err = fix.registry.GetByID(ctx, tenant.ID)
	require.ErrorIs(t, err, service.ErrTenantNotFound)

	_, err = fix.store.GetByName(ctx, tenant.DatabaseInfoName)
	require.ErrorIs(t, err, shardingservice.ErrNotFound)

	require.Len(t, fix.schema.dropped, 1)
}

func TestDeleteTenantSharedDatabase(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	tenant, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:       "Pets Ltd",
		HasOwnDb:         boolPtr(false),
		DatabaseInfoName: "Default Database",
	})
	require.NoError(t, err)

	require.NoError(t, fix.service.DeleteTenantDatabase(ctx, tenant.ID))

	_, err = fix.store.GetByName(ctx, "Default Database")
	require.NoError(t, err, "shared entries must survive tenant deletion")

	require.Equal(t, []uuid.UUID{tenant.ID}, fix.schema.seedRemoved)
	require.Empty(t, fix.schema.dropped)
}

func TestDeleteTenantToleratesMissingEntry(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	tenant, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Big Corp",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.NoError(t, err)

	require.NoError(t, fix.store.Remove(ctx, tenant.DatabaseInfoName))

	require.NoError(t, fix.service.DeleteTenantDatabase(ctx, tenant.ID))

	tenants, err := fix.registry.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, tenants)
}

func TestDeleteTenantUnknown(t *testing.T) {
	fix := newFixture(t)

	err := fix.service.DeleteTenantDatabase(context.Background(), uuid.New())
	require.ErrorIs(t, err, service.ErrTenantNotFound)
}

func TestRemoveLastDatabaseSetup(t *testing.T) {
	fix := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fix.service.RemoveLastDatabaseSetup(ctx), "no-op when nothing was created")

	tenant, err := fix.service.CreateTenantDatabase(ctx, service.CreateInput{
		TenantName:           "Big Corp",
		HasOwnDb:             boolPtr(true),
		ConnectionStringName: "OtherConnection",
		DbProviderShortName:  provider.SqliteShortName,
	})
	require.NoError(t, err)

	require.NoError(t, fix.service.RemoveLastDatabaseSetup(ctx))

	_, err = fix.registry.GetByID(ctx, tenant.ID)
	require.ErrorIs(t, err, service.ErrTenantNotFound)

	_, err = fix.store.GetByName(ctx, tenant.DatabaseInfoName)
	require.ErrorIs(t, err, shardingservice.ErrNotFound)

	require.NoError(t, fix.service.RemoveLastDatabaseSetup(ctx), "second call is a no-op")
}
