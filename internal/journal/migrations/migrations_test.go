package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"sync_events", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)

		err := CheckStatus(db)
		if err == nil {
			t.Fatal("CheckStatus() expected error for fresh database")
		}
		if err.Error() != "journal has no schema version (needs migration)" {
			t.Errorf("CheckStatus() error = %q", err.Error())
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}
		if err := CheckStatus(db); err != nil {
			t.Errorf("CheckStatus() after migration returned error: %v", err)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
}

func TestSchema_SyncEvents(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO sync_events (id, directory, name, last_edited, synced_at) VALUES ('e1', '/docs', 'a.txt', '2024-01-01 00:00:00', 1)`)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	var backupPath string
	var synced int
	if err := db.QueryRow("SELECT backup_path, synced FROM sync_events WHERE id = 'e1'").Scan(&backupPath, &synced); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if backupPath != "" || synced != 0 {
		t.Errorf("defaults = (%q, %d), want (\"\", 0)", backupPath, synced)
	}

	_, err = db.Exec(`INSERT INTO sync_events (id, directory, name, last_edited, synced_at) VALUES ('e1', '/docs', 'b.txt', '', 2)`)
	if err == nil {
		t.Error("expected primary key violation for duplicate id")
	}
}

// openTestDB opens an in-memory SQLite database pinned to one connection.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
