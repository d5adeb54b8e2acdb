package catalog

import (
	"time"

	"ddbackup/internal/fs"
)

// SyncEvent describes one completed sync for the journal.
// Empty error strings mean the corresponding copy succeeded or was not attempted.
type SyncEvent struct {
	Directory  string
	Name       string
	LastEdited string
	BackupPath string
	BackupErr  string
	ExportPath string
	ExportErr  string
	Bytes      int64
	Synced     bool
	At         time.Time
}

// Recorder persists sync events. A nil Recorder disables journaling.
type Recorder interface {
	Record(event SyncEvent) error
}

// SyncResult reports what a sync did. Copy failures are carried here instead
// of being returned as errors; the file's Synced flag reflects the outcome.
type SyncResult struct {
	Name         string
	BackupPath   string // "" when no valid backup directory is configured
	BackupErr    error
	ExportTarget fs.ExportTarget
	ExportPath   string // "" when the export path is invalid
	ExportErr    error
	Bytes        int64
	Synced       bool
}

// Engine copies tracked files to their backup and export destinations and
// keeps derived state in step with the filesystem.
type Engine struct {
	clock    Clock
	logger   Logger
	recorder Recorder
}

// NewEngine creates an Engine. recorder may be nil.
func NewEngine(clock Clock, logger Logger, recorder Recorder) *Engine {
	return &Engine{
		clock:    clock,
		logger:   logger,
		recorder: recorder,
	}
}

// Clock returns the clock used for timestamp fallbacks.
func (e *Engine) Clock() Clock {
	return e.clock
}

// RefreshDirectory recomputes the derived state of every file in dir.
func (e *Engine) RefreshDirectory(dir *DirectoryRecord) {
	dir.RefreshFiles(e.clock)
}

// Sync copies file from sourceDir to a new timestamped backup in backupDir
// (when backupDir is valid) and to its export path (when that is valid), then
// refreshes the file's derived state. The modification time is re-probed first,
// so the backup is named after the content actually copied rather than the
// last refresh. Re-syncing an unmodified file targets the same backup name and
// overwrites it.
func (e *Engine) Sync(file *FileRecord, sourceDir, backupDir string) SyncResult {
	src := file.SourcePath(sourceDir)

	file.RefreshLastEdited(sourceDir, e.clock)

	result := SyncResult{Name: file.Name}

	if fs.IsValidDirectory(backupDir) {
		result.BackupPath = fs.Join(backupDir, file.BackupFilename())
		n, err := fs.CopyFile(src, result.BackupPath)
		if err != nil {
			result.BackupErr = err
			e.logger.Warn("backup copy failed", "source", src, "dest", result.BackupPath, "error", err)
		} else {
			result.Bytes += n
			e.logger.Info("backup copied", "source", src, "dest", result.BackupPath, "bytes", n)
		}
	} else {
		e.logger.Debug("no valid backup directory", "source", src, "backup_directory", backupDir)
	}

	result.ExportTarget = fs.ClassifyExportTarget(file.ExportPath)
	switch result.ExportTarget {
	case fs.ExportAsDirectory:
		result.ExportPath = fs.Join(file.ExportPath, file.Name)
	case fs.ExportAsFile:
		result.ExportPath = file.ExportPath
	}
	if result.ExportPath != "" {
		n, err := fs.CopyFile(src, result.ExportPath)
		if err != nil {
			result.ExportErr = err
			e.logger.Warn("export copy failed", "source", src, "dest", result.ExportPath, "error", err)
		} else {
			result.Bytes += n
			e.logger.Info("export copied", "source", src, "dest", result.ExportPath, "bytes", n)
		}
	}

	file.Refresh(sourceDir, backupDir, e.clock)
	result.Synced = file.Synced

	e.record(sourceDir, file, result)
	return result
}

func (e *Engine) record(sourceDir string, file *FileRecord, result SyncResult) {
	if e.recorder == nil {
		return
	}

	event := SyncEvent{
		Directory:  sourceDir,
		Name:       file.Name,
		LastEdited: file.LastEdited,
		BackupPath: result.BackupPath,
		ExportPath: result.ExportPath,
		Bytes:      result.Bytes,
		Synced:     result.Synced,
		At:         e.clock.Now(),
	}
	if result.BackupErr != nil {
		event.BackupErr = result.BackupErr.Error()
	}
	if result.ExportErr != nil {
		event.ExportErr = result.ExportErr.Error()
	}

	if err := e.recorder.Record(event); err != nil {
		e.logger.Warn("recording sync event failed", "name", file.Name, "error", err)
	}
}
