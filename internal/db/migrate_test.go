// Package db tests for connection setup and schema migrations.
package db

import (
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// TestMigrateUp verifies migrations apply cleanly on a fresh database.
func TestMigrateUp(t *testing.T) {
	database := setupTestDB(t)

	if err := Setup(database); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}

	migrator := NewMigrator(database.DB)
	version, err := migrator.CurrentVersion()
	if err != nil {
		t.Fatalf("CurrentVersion() failed: %v", err)
	}
	if version < 1 {
		t.Errorf("version = %d, want >= 1", version)
	}

	// Both core tables must exist.
	for _, table := range []string{"items", "op_queue"} {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}
}

// TestMigrateIdempotent verifies re-running migrations is a no-op.
func TestMigrateIdempotent(t *testing.T) {
	database := setupTestDB(t)

	if err := Setup(database); err != nil {
		t.Fatalf("first Setup() failed: %v", err)
	}
	if err := Setup(database); err != nil {
		t.Fatalf("second Setup() failed: %v", err)
	}

	migrator := NewMigrator(database.DB)
	applied, err := migrator.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations() failed: %v", err)
	}

	seen := make(map[int]bool)
	for _, mig := range applied {
		if seen[mig.Version] {
			t.Errorf("migration V%d applied twice", mig.Version)
		}
		seen[mig.Version] = true
		if len(mig.Checksum) != 64 {
			t.Errorf("migration V%d checksum length = %d, want 64", mig.Version, len(mig.Checksum))
		}
	}
}

// TestOpenOnDisk verifies the on-disk database survives reopening.
func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()

	database, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := Setup(database); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	if _, err := database.Exec(
		"INSERT INTO items (id, week_of, created_at, updated_at) VALUES ('itm_1', '2024-06-03', 1, 1)"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("re-Open() failed: %v", err)
	}
	defer reopened.Close()

	var count int
	if err := reopened.QueryRow("SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after reopen", count)
	}
}
