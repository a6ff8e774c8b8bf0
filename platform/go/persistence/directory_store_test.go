package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirectoryStoreLifecycle(t *testing.T) {
	if _, ok := os.LookupEnv("TEST_DATABASE_URL"); !ok {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	store, err := NewDirectoryStore(ctx, pool)
	require.NoError(t, err)

	name := "it-shard-alpha"
	t.Cleanup(func() {
		_ = store.Delete(context.Background(), name)
	})

	rec := DirectoryRecord{
		Name:           name,
		ConnectionName: "DefaultConnection",
		DatabaseName:   "AlphaDb",
		DatabaseType:   "PostgreSQL",
	}
	require.NoError(t, store.Insert(ctx, rec))

	require.ErrorIs(t, store.Insert(ctx, rec), ErrDuplicate)

	fetched, err := store.Get(ctx, name)
	require.NoError(t, err)
	require.Equal(t, rec, fetched)

	rec.DatabaseName = "MovedDb"
	require.NoError(t, store.Update(ctx, rec))

	fetched, err = store.Get(ctx, name)
	require.NoError(t, err)
	require.Equal(t, "MovedDb", fetched.DatabaseName)

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	require.NoError(t, store.Delete(ctx, name))
	require.ErrorIs(t, store.Delete(ctx, name), ErrNotFound)

	_, err = store.Get(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)
}
