package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ddbackup/internal/catalog"
	"ddbackup/internal/journal/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal stores sync events in a SQLite database.
type SQLiteJournal struct {
	db    *sql.DB
	idgen IDGenerator
	path  string
}

// NewSQLiteJournal opens the journal at path and brings its schema up to date.
// path can be a file path or ":memory:".
func NewSQLiteJournal(path string, idgen IDGenerator) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}
	if err := migrations.CheckStatus(db); err != nil {
		db.Close()
		return nil, err
	}

	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &SQLiteJournal{db: db, idgen: idgen, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Record appends event to the journal.
func (j *SQLiteJournal) Record(event catalog.SyncEvent) error {
	_, err := j.db.ExecContext(context.Background(), `
		INSERT INTO sync_events
			(id, directory, name, last_edited, backup_path, backup_err, export_path, export_err, bytes, synced, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.idgen.New(),
		event.Directory,
		event.Name,
		event.LastEdited,
		event.BackupPath,
		event.BackupErr,
		event.ExportPath,
		event.ExportErr,
		event.Bytes,
		boolToInt(event.Synced),
		event.At.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("recording sync of %s: %w", event.Name, err)
	}
	return nil
}

// Recent returns up to limit entries across all directories.
func (j *SQLiteJournal) Recent(limit int) ([]*Entry, error) {
	rows, err := j.db.QueryContext(context.Background(), `
		SELECT id, directory, name, last_edited, backup_path, backup_err, export_path, export_err, bytes, synced, synced_at
		FROM sync_events
		ORDER BY synced_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent syncs: %w", err)
	}
	return scanEntries(rows)
}

// ForFile returns up to limit entries for one file. The directory matches
// case-insensitively, like catalog lookups.
func (j *SQLiteJournal) ForFile(directory, name string, limit int) ([]*Entry, error) {
	rows, err := j.db.QueryContext(context.Background(), `
		SELECT id, directory, name, last_edited, backup_path, backup_err, export_path, export_err, bytes, synced, synced_at
		FROM sync_events
		WHERE directory = ? COLLATE NOCASE AND name = ?
		ORDER BY synced_at DESC, rowid DESC
		LIMIT ?`, directory, name, limit)
	if err != nil {
		return nil, fmt.Errorf("querying syncs of %s: %w", name, err)
	}
	return scanEntries(rows)
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var synced int
		var at int64
		if err := rows.Scan(&e.ID, &e.Directory, &e.Name, &e.LastEdited, &e.BackupPath, &e.BackupErr,
			&e.ExportPath, &e.ExportErr, &e.Bytes, &synced, &at); err != nil {
			return nil, fmt.Errorf("scanning sync event: %w", err)
		}
		e.Synced = synced != 0
		e.SyncedAt = time.Unix(0, at)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading sync events: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
