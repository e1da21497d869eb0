package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(DriverSQLite, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNew_Errors(t *testing.T) {
	_, err := New(DriverSQLite, "", zap.NewNop())
	assert.ErrorContains(t, err, "required")

	_, err = New("mysql", "root@/council", zap.NewNop())
	assert.ErrorContains(t, err, "unsupported")
}

func TestRunMigrations_Idempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.RunMigrations(ctx))
	require.NoError(t, d.RunMigrations(ctx))

	var count int
	require.NoError(t, d.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)

	_, err := d.ExecContext(ctx,
		d.Rebind("INSERT INTO session_items (session_id, item_key, item_value, updated_at) VALUES ($1, $2, $3, CURRENT_TIMESTAMP)"),
		"s1", "k", "v")
	require.NoError(t, err)
	require.NoError(t, d.HealthCheck(ctx))
}

func TestNew_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	d, err := New(DriverSQLite, path, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.RunMigrations(context.Background()))
	assert.FileExists(t, path)
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = $1 AND y = $2 AND z = '$'"

	assert.Equal(t, q, (&DB{Driver: DriverPostgres}).Rebind(q))
	assert.Equal(t, "SELECT a FROM t WHERE x = ?1 AND y = ?2 AND z = '$'", (&DB{Driver: DriverSQLite}).Rebind(q))
}

func TestReadMigrations_SortsAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_later.sql":      {Data: []byte("SELECT 10;")},
		"m/002_first_pass.sql": {Data: []byte("SELECT 2;")},
		"m/README.md":          {Data: []byte("notes")},
		"m/nonumber.sql":       {Data: []byte("SELECT 0;")},
		"m/abc_bad.sql":        {Data: []byte("SELECT 0;")},
	}

	got, err := readMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Migration{Number: 2, Name: "first_pass", SQL: "SELECT 2;"}, got[0])
	assert.Equal(t, 10, got[1].Number)
}
