package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// CreateInMemoryDB creates an in-memory SQLite database for testing. The
// pool is pinned to one connection because every new connection to
// ":memory:" would see its own empty database.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateSQLiteFixture creates a SQLite file at dbPath holding one small
// table, for tests that only need a readable database
func CreateSQLiteFixture(t *testing.T, dbPath string) {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	for _, body := range []string{"first", "second"} {
		if _, err := db.Exec(`INSERT INTO notes (body) VALUES (?)`, body); err != nil {
			t.Fatalf("Failed to insert row: %v", err)
		}
	}
}
