package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/repo"
	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
)

type passLocker struct{}

func (passLocker) RunExclusive(ctx context.Context, name string, fn func(context.Context) error) error {
	return fn(ctx)
}

func newDirectory(t *testing.T, store service.Store, links service.TenantLinks) *service.Directory {
	t.Helper()
	resolver := newResolver(t, store, links)
	return service.NewDirectory(store, resolver, links, passLocker{}, zap.NewNop())
}

func validEntry(name string) service.DatabaseInformation {
	return service.DatabaseInformation{
		Name:           name,
		ConnectionName: "DefaultConnection",
		DatabaseName:   "SomeDb",
		DatabaseType:   provider.SqlServerShortName,
	}
}

func TestDirectoryAdd(t *testing.T) {
	store := repo.NewMemoryStore()
	directory := newDirectory(t, store, stubLinks{})
	ctx := context.Background()

	require.NoError(t, directory.Add(ctx, validEntry("Shard Alpha")))

	entries, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Shard Alpha", entries[0].Name)
}

func TestDirectoryAddDuplicate(t *testing.T) {
	store := repo.NewMemoryStore()
	directory := newDirectory(t, store, stubLinks{})
	ctx := context.Background()

	original := validEntry("Shard Alpha")
	require.NoError(t, directory.Add(ctx, original))

	changed := original
	changed.DatabaseName = "OtherDb"
	require.ErrorIs(t, directory.Add(ctx, changed), service.ErrDuplicateName)

	entries, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "SomeDb", entries[0].DatabaseName, "duplicate adds must not change the stored entry")
}

func TestDirectoryAddRejectsUnresolvableEntry(t *testing.T) {
	store := repo.NewMemoryStore()
	directory := newDirectory(t, store, stubLinks{})
	ctx := context.Background()

	entry := validEntry("Shard Alpha")
	entry.ConnectionName = "MissingConnection"
	require.ErrorIs(t, directory.Add(ctx, entry), service.ErrMissingTemplate)

	entry = validEntry("Shard Beta")
	entry.DatabaseType = "OracleXE"
	require.ErrorIs(t, directory.Add(ctx, entry), service.ErrUnsupportedProvider)

	entries, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Empty(t, entries, "nothing may be stored when the dry run fails")
}

func TestDirectoryUpdate(t *testing.T) {
	store := repo.NewMemoryStore()
	directory := newDirectory(t, store, stubLinks{})
	ctx := context.Background()

	require.NoError(t, directory.Add(ctx, validEntry("Shard Alpha")))

	changed := validEntry("Shard Alpha")
	changed.DatabaseName = "MovedDb"
	require.NoError(t, directory.Update(ctx, changed))

	stored, err := store.GetByName(ctx, "Shard Alpha")
	require.NoError(t, err)
	require.Equal(t, "MovedDb", stored.DatabaseName)

	require.ErrorIs(t, directory.Update(ctx, validEntry("ghost")), service.ErrNotFound)
}

func TestDirectoryRemove(t *testing.T) {
	store := repo.NewMemoryStore()
	directory := newDirectory(t, store, stubLinks{})
	ctx := context.Background()

	require.NoError(t, directory.Add(ctx, validEntry("Shard Alpha")))
	require.NoError(t, directory.Remove(ctx, "Shard Alpha"))

	require.ErrorIs(t, directory.Remove(ctx, "Shard Alpha"), service.ErrNotFound)
	require.ErrorIs(t, directory.Remove(ctx, "  "), service.ErrValidation)
}

func TestDirectoryRemoveRefusedWhileOwned(t *testing.T) {
	store := repo.NewMemoryStore()
	links := stubLinks{
		{TenantName: "Big Corp", DatabaseInfoName: "Shard Alpha", HasOwnDb: true},
	}
	directory := newDirectory(t, store, links)
	ctx := context.Background()

	require.NoError(t, directory.Add(ctx, validEntry("Shard Alpha")))

	err := directory.Remove(ctx, "Shard Alpha")
	require.ErrorIs(t, err, service.ErrValidation)
	require.ErrorContains(t, err, "Big Corp")

	_, err = store.GetByName(ctx, "Shard Alpha")
	require.NoError(t, err, "the owned entry must survive")
}

func TestDirectorySeedDefault(t *testing.T) {
	store := repo.NewMemoryStore()
	directory := newDirectory(t, store, stubLinks{})
	ctx := context.Background()

	seed := service.DatabaseInformation{
		Name:           "Default Database",
		ConnectionName: "DefaultConnection",
		DatabaseType:   provider.SqlServerShortName,
	}
	require.NoError(t, directory.SeedDefault(ctx, seed))
	require.NoError(t, directory.SeedDefault(ctx, seed), "seeding twice is a no-op")

	entries, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, directory.Add(ctx, validEntry("Shard Alpha")))
	require.NoError(t, directory.SeedDefault(ctx, seed))
	entries, err = store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2, "a populated directory is never reseeded")
}
