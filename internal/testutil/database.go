package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/applicant-trust-engine/internal/testutil/containers"
)

// TestDB is a throwaway PostgreSQL instance with the engine schema applied.
// Each call starts its own container, so tests sharing one should pass the
// value around rather than calling NewTestDB repeatedly.
type TestDB struct {
	t   *testing.T
	db  *sql.DB
	url string
}

// NewTestDB starts a postgres container, applies every migration and
// registers cleanup with the test.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()
	pg, err := containers.NewPostgresContainer(ctx)
	require.NoError(t, err, "starting postgres container")
	t.Cleanup(func() {
		_ = pg.Terminate(context.Background())
	})

	db, err := sql.Open("postgres", pg.ConnectionString)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	require.NoError(t, db.Ping())

	tdb := &TestDB{t: t, db: db, url: pg.ConnectionString}
	tdb.applyMigrations(ctx)
	return tdb
}

// DB returns the underlying database handle.
func (tdb *TestDB) DB() *sql.DB {
	return tdb.db
}

// URL returns the container's connection string.
func (tdb *TestDB) URL() string {
	return tdb.url
}

// TruncateAll resets the per-run tables between test cases without
// recreating the container. The pattern catalog seed is left in place.
func (tdb *TestDB) TruncateAll(ctx context.Context) {
	tdb.t.Helper()
	for _, table := range []string{
		"fraud_alerts",
		"fraud_assessments",
		"document_fingerprints",
	} {
		_, err := tdb.db.ExecContext(ctx, "TRUNCATE TABLE "+table)
		require.NoError(tdb.t, err, "truncating %s", table)
	}
}

func (tdb *TestDB) applyMigrations(ctx context.Context) {
	tdb.t.Helper()

	dir := migrationsDir(tdb.t)
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	require.NoError(tdb.t, err)
	require.NotEmpty(tdb.t, files, "no migration files found under %s", dir)
	sort.Strings(files)

	for _, file := range files {
		content, err := os.ReadFile(file)
		require.NoError(tdb.t, err)
		_, err = tdb.db.ExecContext(ctx, string(content))
		require.NoError(tdb.t, err, "applying migration %s", file)
	}
}

// migrationsDir walks up from the working directory until it finds the
// module root, so tests in any package resolve the same migrations.
func migrationsDir(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations")
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "module root not found above working directory")
		dir = parent
	}
}
