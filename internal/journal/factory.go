package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"ddbackup/internal/config"
)

// FileName is the journal database file inside the configured data directory.
const FileName = "journal.db"

// NewJournalFromConfig creates a Journal based on the journal config type.
func NewJournalFromConfig(cfg config.JournalConfig, idgen IDGenerator) (Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, FileName), idgen)
	case "memory":
		return openSQLite(":memory:", idgen)
	case "none", "":
		return NopJournal{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}

// openSQLite keeps a failed open from yielding a non-nil Journal.
func openSQLite(path string, idgen IDGenerator) (Journal, error) {
	j, err := NewSQLiteJournal(path, idgen)
	if err != nil {
		return nil, err
	}
	return j, nil
}
