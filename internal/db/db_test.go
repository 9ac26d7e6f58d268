package db

import (
	"strings"
	"testing"
)

func TestDSNCarriesPragmas(t *testing.T) {
	got := dsn("/tmp/ws/.shopscout/shopscout.db")
	for _, want := range []string{
		"foreign_keys%281%29",
		"busy_timeout%285000%29",
		"journal_mode%28WAL%29",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn missing %s: %s", want, got)
		}
	}
}

func TestMigrateCreatesSchema(t *testing.T) {
	conn, err := Open(Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
	for _, table := range requiredTables {
		var name string
		err := conn.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := Open(Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if _, err := conn.Exec(
		`INSERT INTO users(id, email, password_hash, created_at) VALUES ('u1', 'u1@example.com', 'x', '2026-01-01T00:00:00Z')`,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A second run must not re-apply step 1 and wipe the data.
	if err := Migrate(conn); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected seeded row to survive, got %d rows", n)
	}
}
