package migrate_test

import (
	"database/sql"
	"testing"

	"kriya/internal/db"
	"kriya/internal/migrate"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(workspace)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrateCreatesSchema(t *testing.T) {
	conn := openTestDB(t)
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version == 0 {
		t.Fatalf("user_version = 0, want recorded schema version")
	}

	// The tasks table must exist with its column defaults in place.
	if _, err := conn.Exec(`INSERT INTO tasks(title) VALUES ('check')`); err != nil {
		t.Fatalf("insert into tasks: %v", err)
	}
	var stage string
	if err := conn.QueryRow(`SELECT stage FROM tasks WHERE title='check'`).Scan(&stage); err != nil {
		t.Fatalf("read task: %v", err)
	}
	if stage != "Inbox" {
		t.Errorf("stage default = %q, want %q", stage, "Inbox")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	var before int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&before); err != nil {
		t.Fatalf("read user_version: %v", err)
	}

	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var after int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&after); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if after != before {
		t.Errorf("user_version changed on re-run: %d -> %d", before, after)
	}
}
