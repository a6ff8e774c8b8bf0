package schema_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/provider"
	"github.com/zenGate-Global/palmyra-sharding/domains/tenants/be/schema"
)

func TestSqliteLifecycle(t *testing.T) {
	mgr := schema.NewManager(zap.NewNop())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "tenants", "acme.sqlite")
	connString := "file:" + path

	require.NoError(t, mgr.Ensure(ctx, provider.SqliteShortName, connString))
	require.NoError(t, mgr.Ensure(ctx, provider.SqliteShortName, connString), "ensure must be idempotent")
	require.FileExists(t, path)

	tenantID := uuid.New()
	require.NoError(t, mgr.Seed(ctx, provider.SqliteShortName, connString, tenantID, "Acme Corp"))
	require.NoError(t, mgr.Seed(ctx, provider.SqliteShortName, connString, tenantID, "Acme Corp"), "seed must be retriable")

	require.Equal(t, 1, countCompanies(t, connString, tenantID))

	require.NoError(t, mgr.RemoveSeed(ctx, provider.SqliteShortName, connString, tenantID))
	require.Equal(t, 0, countCompanies(t, connString, tenantID))

	require.NoError(t, mgr.Drop(ctx, provider.SqliteShortName, connString))
	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, mgr.Drop(ctx, provider.SqliteShortName, connString), "drop must tolerate an absent database")
}

func TestRemoveSeedKeepsOtherTenants(t *testing.T) {
	mgr := schema.NewManager(zap.NewNop())
	ctx := context.Background()

	connString := "file:" + filepath.Join(t.TempDir(), "shared.sqlite")
	require.NoError(t, mgr.Ensure(ctx, provider.SqliteShortName, connString))

	first := uuid.New()
	second := uuid.New()
	require.NoError(t, mgr.Seed(ctx, provider.SqliteShortName, connString, first, "First Ltd"))
	require.NoError(t, mgr.Seed(ctx, provider.SqliteShortName, connString, second, "Second Ltd"))

	require.NoError(t, mgr.RemoveSeed(ctx, provider.SqliteShortName, connString, first))

	require.Equal(t, 0, countCompanies(t, connString, first))
	require.Equal(t, 1, countCompanies(t, connString, second))
}

func TestUnsupportedEngine(t *testing.T) {
	mgr := schema.NewManager(zap.NewNop())
	ctx := context.Background()

	err := mgr.Ensure(ctx, provider.SqlServerShortName, "Data Source=MyServer;Initial Catalog=SomeDb")
	require.ErrorIs(t, err, schema.ErrUnsupportedEngine)

	err = mgr.Drop(ctx, "OracleXE", "whatever")
	require.ErrorIs(t, err, schema.ErrUnsupportedEngine)
}

func countCompanies(t *testing.T, connString string, tenantID uuid.UUID) int {
	t.Helper()

	db, err := sql.Open("sqlite", connString)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM companies WHERE id = $1`, tenantID.String()).Scan(&count)
	require.NoError(t, err)
	return count
}
