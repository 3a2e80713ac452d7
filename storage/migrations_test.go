package storage

import (
	"context"
	"database/sql"
	"testing"
)

func TestMigrations(t *testing.T) {
	tempDir := t.TempDir()

	storage := NewSQLiteStorage(tempDir, 0)
	err := storage.Initialize()
	if err != nil {
		t.Fatalf("Failed to initialize storage: %v", err)
	}
	defer storage.Close()

	version, err := storage.GetDatabaseVersion()
	if err != nil {
		t.Fatalf("Failed to get database version: %v", err)
	}

	if version < 1 {
		t.Errorf("Expected database version >= 1, got %d", version)
	}

	db, err := storage.GetDB()
	if err != nil {
		t.Fatalf("Failed to get database: %v", err)
	}

	for _, table := range []string{"lists", "list_items", "spins"} {
		var tableName string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
		if err != nil {
			t.Fatalf("Table %s was not created: %v", table, err)
		}
	}

	// a second Up is a no-op
	err = storage.RunMigrations()
	if err != nil {
		t.Fatalf("Failed to run migrations again: %v", err)
	}

	newVersion, err := storage.GetDatabaseVersion()
	if err != nil {
		t.Fatalf("Failed to get database version after re-running migrations: %v", err)
	}

	if newVersion < version {
		t.Errorf("Database version went backwards: %d -> %d", version, newVersion)
	}
}

func TestMigrationManager(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()
	// every pooled connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	migrationManager := NewMigrationManager(db)
	err = migrationManager.Initialize()
	if err != nil {
		t.Fatalf("Failed to initialize migration manager: %v", err)
	}

	version, err := migrationManager.Version(ctx)
	if err != nil {
		t.Fatalf("Failed to get initial version: %v", err)
	}

	if version != 0 {
		t.Errorf("Expected initial version 0, got %d", version)
	}

	err = migrationManager.Up(ctx)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	version, err = migrationManager.Version(ctx)
	if err != nil {
		t.Fatalf("Failed to get version after migrations: %v", err)
	}

	if version < 1 {
		t.Errorf("Expected version >= 1 after migrations, got %d", version)
	}

	err = migrationManager.Down(ctx)
	if err != nil {
		t.Fatalf("Failed to rollback migration: %v", err)
	}

	newVersion, err := migrationManager.Version(ctx)
	if err != nil {
		t.Fatalf("Failed to get version after rollback: %v", err)
	}

	if newVersion >= version {
		t.Errorf("Expected version to decrease after rollback: %d -> %d", version, newVersion)
	}
}

func TestResetDatabase(t *testing.T) {
	storage := NewSQLiteStorage(t.TempDir(), 0)
	if err := storage.Initialize(); err != nil {
		t.Fatalf("Failed to initialize storage: %v", err)
	}
	defer storage.Close()

	if err := storage.RollbackMigration(); err != nil {
		t.Fatalf("Failed to roll back: %v", err)
	}
	if v, _ := storage.GetDatabaseVersion(); v != 1 {
		t.Errorf("Expected version 1 after rollback, got %d", v)
	}

	if err := storage.ResetDatabase(); err != nil {
		t.Fatalf("Failed to reset: %v", err)
	}
	if v, _ := storage.GetDatabaseVersion(); v != 0 {
		t.Errorf("Expected version 0 after reset, got %d", v)
	}

	if err := storage.RunMigrations(); err != nil {
		t.Fatalf("Failed to migrate again: %v", err)
	}
	if v, _ := storage.GetDatabaseVersion(); v != 2 {
		t.Errorf("Expected version 2, got %d", v)
	}
}

func TestMigrationStatus(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	migrationManager := NewMigrationManager(db)
	if err := migrationManager.Initialize(); err != nil {
		t.Fatalf("Failed to initialize migration manager: %v", err)
	}

	applied := func() []bool {
		t.Helper()
		statuses, err := migrationManager.Status(ctx)
		if err != nil {
			t.Fatalf("Failed to get migration status: %v", err)
		}
		if len(statuses) != 2 {
			t.Fatalf("Expected 2 migrations, got %d", len(statuses))
		}
		out := make([]bool, len(statuses))
		for i, st := range statuses {
			if st.Version != int64(i+1) {
				t.Errorf("Expected migration %d at position %d, got %d", i+1, i, st.Version)
			}
			if st.Applied && st.AppliedAt.IsZero() {
				t.Errorf("Migration %d applied without a timestamp", st.Version)
			}
			out[i] = st.Applied
		}
		return out
	}

	if got := applied(); got[0] || got[1] {
		t.Errorf("Expected nothing applied on a fresh database, got %v", got)
	}

	if err := migrationManager.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if got := applied(); !got[0] || !got[1] {
		t.Errorf("Expected every migration applied after Up, got %v", got)
	}

	if err := migrationManager.Down(ctx); err != nil {
		t.Fatalf("Failed to rollback migration: %v", err)
	}
	if got := applied(); !got[0] || got[1] {
		t.Errorf("Expected only the first migration applied after Down, got %v", got)
	}
}
