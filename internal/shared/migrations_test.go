package shared

import (
	"path/filepath"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("running migrations twice should be a no-op, got %v", err)
		}

		var tableCount int
		if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'documents'").Scan(&tableCount); err != nil {
			t.Fatalf("failed to query sqlite_master: %v", err)
		}
		if tableCount != 1 {
			t.Fatalf("expected documents table to exist")
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback: %v", err)
		}

		if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'documents'").Scan(&tableCount); err != nil {
			t.Fatalf("failed to query sqlite_master: %v", err)
		}
		if tableCount != 0 {
			t.Error("expected documents table to be dropped")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing left to rollback")
		}
	})

	t.Run("stripComments", func(t *testing.T) {
		got := stripComments("-- header\nCREATE TABLE x (id INTEGER); -- trailing\n\n")
		if got != "CREATE TABLE x (id INTEGER);" {
			t.Errorf("unexpected result %q", got)
		}
	})
}
