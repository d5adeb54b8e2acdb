// Package journal keeps an append-only history of sync operations.
package journal

import (
	"time"

	"github.com/google/uuid"

	"ddbackup/internal/catalog"
)

// Entry is one recorded sync.
type Entry struct {
	ID         string
	Directory  string
	Name       string
	LastEdited string
	BackupPath string
	BackupErr  string
	ExportPath string
	ExportErr  string
	Bytes      int64
	Synced     bool
	SyncedAt   time.Time
}

// Failed reports whether either copy of the sync failed.
func (e *Entry) Failed() bool {
	return e.BackupErr != "" || e.ExportErr != ""
}

// Journal records sync events and answers history queries, newest first.
type Journal interface {
	catalog.Recorder
	Recent(limit int) ([]*Entry, error)
	ForFile(directory, name string, limit int) ([]*Entry, error)
	Close() error
}

// IDGenerator produces unique entry IDs.
type IDGenerator interface {
	New() string
}

// UUIDGenerator generates random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string {
	return uuid.New().String()
}

// NopJournal discards events and has no history.
type NopJournal struct{}

func (NopJournal) Record(catalog.SyncEvent) error { return nil }

func (NopJournal) Recent(int) ([]*Entry, error) { return nil, nil }

func (NopJournal) ForFile(string, string, int) ([]*Entry, error) { return nil, nil }

func (NopJournal) Close() error { return nil }
