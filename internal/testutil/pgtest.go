// Package testutil provides shared test infrastructure for integration tests.
package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// PGTest opens a test database connection and returns the *sql.DB plus a
// cleanup function that truncates the given tables.
//
// Tests should call this at the top:
//
//	db, cleanup := testutil.PGTest(t, "scans")
//	defer cleanup()
//
// If POSTGRES_URL is not set, the test is skipped.
func PGTest(t *testing.T, tables ...string) (*sql.DB, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("pgtest: open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: connect to database: %v", err)
	}

	cleanup := func() {
		for _, table := range tables {
			_, _ = db.Exec("TRUNCATE TABLE " + table)
		}
		_ = db.Close()
	}
	return db, cleanup
}
