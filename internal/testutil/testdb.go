// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// Tables lists every SIPAS table, children before parents
var Tables = []string{
	"surat_keluar",
	"surat_masuk",
	"nomor_counter",
	"kategori",
	"users",
}

// TestDB is a connection to the Postgres instance used by store tests
type TestDB struct {
	*sql.DB
	t *testing.T
}

// TestDSN returns TEST_DATABASE_URL, or a DSN assembled from the DB_* variables
func TestDSN() string {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		env("DB_HOST", "localhost"),
		env("DB_PORT", "5432"),
		env("DB_USER", "test"),
		env("DB_PASSWORD", "test"),
		env("DB_NAME", "sipas_test"),
		env("DB_SSLMODE", "disable"),
	)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewTestDB connects to the test database. The test is skipped when Postgres
// cannot be reached; the caller is responsible for migrating the schema.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	db, err := sql.Open("postgres", TestDSN())
	if err != nil {
		t.Skipf("Skipping test: unable to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Skipf("Skipping test: unable to connect to database: %v", err)
	}

	return &TestDB{DB: db, t: t}
}

// Close closes the test database connection
func (tdb *TestDB) Close() {
	if err := tdb.DB.Close(); err != nil {
		tdb.t.Errorf("Failed to close test database: %v", err)
	}
}

// Cleanup empties every SIPAS table that exists. Missing tables are ignored so
// it can run before the first migration.
func (tdb *TestDB) Cleanup(ctx context.Context) {
	tdb.t.Helper()

	var existing []string
	for _, table := range Tables {
		var found sql.NullString
		if err := tdb.QueryRowContext(ctx, `SELECT to_regclass($1)::text`, table).Scan(&found); err != nil {
			tdb.t.Fatalf("Failed to look up table %s: %v", table, err)
		}
		if found.Valid {
			existing = append(existing, table)
		}
	}
	if len(existing) == 0 {
		return
	}

	query := "TRUNCATE " + strings.Join(existing, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := tdb.ExecContext(ctx, query); err != nil {
		tdb.t.Fatalf("Failed to truncate test tables: %v", err)
	}
}
