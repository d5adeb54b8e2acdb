package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ddbackup/internal/catalog"
	"ddbackup/internal/config"
	"ddbackup/internal/fs"
	"ddbackup/internal/journal"
	"ddbackup/internal/state"
)

var (
	// ErrNoCurrentDirectory is returned when an action needs a tracked current directory and there is none.
	ErrNoCurrentDirectory = errors.New("no current directory")
	// ErrNoSuchFile is returned for a file index outside the current directory's list.
	ErrNoSuchFile = errors.New("no such file in current directory")
	// ErrNotAFile is returned by AddFile when the path is not an existing regular file.
	ErrNotAFile = errors.New("not a regular file")
	// ErrIgnored is returned by AddFile when the file matches a configured or .ddbignore pattern.
	ErrIgnored = errors.New("file matches an ignore pattern")
	// ErrRemoveNotAllowed is returned by RemoveFile while the file's removal gate is closed.
	ErrRemoveNotAllowed = errors.New("removal not allowed")
)

// App is the application layer between the CLI and the catalog engine.
// It owns the catalog for the lifetime of one invocation: the state file is
// locked and loaded in New, and saved and unlocked in Close.
type App struct {
	cfg        *config.Config
	clock      catalog.Clock
	logger     catalog.Logger
	store      *state.Store
	journal    journal.Journal
	engine     *catalog.Engine
	ignore     *fs.IgnoreMatcher
	catalog    *catalog.Catalog
	currentDir string
	op         *Operation
	logFile    *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "sync", "add").
// The caller must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	op := NewOperation(operation, journal.UUIDGenerator{})
	return newApp(cfg, op, catalog.RealClock{}, os.Stderr)
}

func newApp(cfg *config.Config, op *Operation, clock catalog.Clock, console io.Writer) (*App, error) {
	if cfg.StatePath == "" {
		return nil, fmt.Errorf("no state_path configured")
	}

	slogger, logFile, err := newLogger(cfg.LogDir, op, console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	a := &App{
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
		ignore:  fs.NewIgnoreMatcher(cfg.Filesystem.Ignore),
		op:      op,
		logFile: logFile,
	}

	if err := a.open(); err != nil {
		logger.Error("startup failed", "error", err)
		logFile.Close()
		return nil, err
	}

	logger.Debug("operation started", "directories", a.catalog.Len())
	return a, nil
}

// open locks and loads the state and opens the journal. On error everything
// it acquired is released.
func (a *App) open() error {
	store, err := state.NewStore(a.cfg.StatePath, a.clock, a.logger)
	if err != nil {
		return fmt.Errorf("creating state store: %w", err)
	}
	if err := store.Lock(); err != nil {
		return err
	}

	c, currentDir, err := store.Load()
	if err != nil {
		if !errors.Is(err, state.ErrMalformedState) || a.cfg.StrictState {
			store.Unlock()
			return fmt.Errorf("loading state: %w", err)
		}
		a.logger.Warn("starting with empty catalog", "error", err)
		if _, qerr := store.Quarantine(); qerr != nil {
			a.logger.Warn("could not move malformed state aside", "error", qerr)
		}
	}

	j, err := journal.NewJournalFromConfig(a.cfg.Journal, nil)
	if err != nil {
		store.Unlock()
		return fmt.Errorf("creating journal: %w", err)
	}

	a.store = store
	a.journal = j
	a.engine = catalog.NewEngine(a.clock, a.logger, j)
	a.catalog = c
	a.currentDir = currentDir
	return nil
}

// ChangeCurrentDirectory makes dir the current directory. A valid directory
// becomes tracked and its files are refreshed; an invalid one is still
// recorded as current but nothing is tracked.
func (a *App) ChangeCurrentDirectory(dir string) error {
	p, err := resolve(dir)
	if err != nil {
		return err
	}
	a.currentDir = p

	if !fs.IsValidDirectory(p) {
		a.logger.Warn("current directory is not a valid directory", "path", p)
		return nil
	}
	d := a.catalog.TouchOrInsert(p)
	a.engine.RefreshDirectory(d)
	a.logger.Info("current directory changed", "path", d.Path, "files", len(d.Files))
	return nil
}

// SetBackupDirectory sets the backup destination of the current directory.
func (a *App) SetBackupDirectory(dir string) error {
	d, err := a.current()
	if err != nil {
		return err
	}
	p, err := resolve(dir)
	if err != nil {
		return err
	}

	d.BackupDirectory = p
	a.engine.RefreshDirectory(d)
	if !fs.IsValidDirectory(p) {
		a.logger.Warn("backup directory is not a valid directory", "path", p)
	}
	a.logger.Info("backup directory set", "directory", d.Path, "backup_directory", p)
	return nil
}

// AddFile starts tracking the file at path. The file's parent becomes the
// current directory.
func (a *App) AddFile(path string) error {
	p, err := resolve(path)
	if err != nil {
		return err
	}
	if !fs.IsValidFile(p) {
		return fmt.Errorf("%w: %s", ErrNotAFile, p)
	}

	parent := fs.ParentPath(p)
	extra, err := fs.ParseIgnoreFile(parent)
	if err != nil {
		a.logger.Warn("ignoring unreadable ignore file", "directory", parent, "error", err)
	}
	if a.ignore.With(extra).Match(p) {
		return fmt.Errorf("%w: %s", ErrIgnored, p)
	}

	a.currentDir = parent
	d := a.catalog.TouchOrInsert(parent)
	// NewFileRecord probed the real path. d.Path may differ from parent by case,
	// so LastEdited is not re-probed against it.
	f := catalog.NewFileRecord(p, a.clock)
	f.RefreshSynced(d.BackupDirectory)
	f.RefreshExportValid()
	d.AddFile(f)

	a.logger.Info("file added", "directory", d.Path, "name", f.Name, "last_edited", f.LastEdited)
	return nil
}

// SetExportPath sets the export destination of file i. An empty path clears it.
func (a *App) SetExportPath(i int, path string) error {
	_, f, err := a.file(i)
	if err != nil {
		return err
	}
	p, err := resolve(path)
	if err != nil {
		return err
	}

	f.ExportPath = p
	f.RefreshExportValid()
	a.logger.Info("export path set", "name", f.Name, "export_path", p, "valid", f.ExportValid)
	return nil
}

// SetRemoveAllowed opens or closes the removal gate of file i.
func (a *App) SetRemoveAllowed(i int, allowed bool) error {
	_, f, err := a.file(i)
	if err != nil {
		return err
	}
	f.RemoveAllowed = allowed
	return nil
}

// RemoveFile stops tracking file i. Its removal gate must be open.
func (a *App) RemoveFile(i int) error {
	d, f, err := a.file(i)
	if err != nil {
		return err
	}
	if !f.RemoveAllowed {
		return fmt.Errorf("%w: %s", ErrRemoveNotAllowed, f.Name)
	}

	d.RemoveFile(i)
	a.logger.Info("file removed", "directory", d.Path, "name", f.Name)
	return nil
}

// SyncFile copies file i to its backup and export destinations.
func (a *App) SyncFile(i int) (catalog.SyncResult, error) {
	d, f, err := a.file(i)
	if err != nil {
		return catalog.SyncResult{}, err
	}
	res := a.engine.Sync(f, d.Path, d.BackupDirectory)
	a.op.Fail(res.BackupErr)
	a.op.Fail(res.ExportErr)
	return res, nil
}

// SyncAll syncs every file in the current directory, in display order.
func (a *App) SyncAll() ([]catalog.SyncResult, error) {
	d, err := a.current()
	if err != nil {
		return nil, err
	}

	results := make([]catalog.SyncResult, 0, len(d.Files))
	for _, f := range d.Files {
		res := a.engine.Sync(f, d.Path, d.BackupDirectory)
		a.op.Fail(res.BackupErr)
		a.op.Fail(res.ExportErr)
		results = append(results, res)
	}
	return results, nil
}

// CurrentDirectory returns the current directory path, which may be untracked.
func (a *App) CurrentDirectory() string {
	return a.currentDir
}

// Current returns a snapshot of the current directory record.
func (a *App) Current() (catalog.DirectoryRecord, bool) {
	if a.currentDir == "" {
		return catalog.DirectoryRecord{}, false
	}
	return a.catalog.Find(a.currentDir)
}

// Directories returns snapshots of every tracked directory.
func (a *App) Directories() []catalog.DirectoryRecord {
	return a.catalog.Snapshot()
}

// History returns the most recent syncs across all directories.
func (a *App) History(limit int) ([]*journal.Entry, error) {
	return a.journal.Recent(limit)
}

// FileHistory returns the most recent syncs of file i.
func (a *App) FileHistory(i, limit int) ([]*journal.Entry, error) {
	d, f, err := a.file(i)
	if err != nil {
		return nil, err
	}
	return a.journal.ForFile(d.Path, f.Name, limit)
}

// Close saves the catalog and releases the journal, the state lock and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.store.Save(a.catalog, a.currentDir); err != nil {
		a.logger.Error("saving state failed", "error", err)
		a.op.Fail(err)
		firstErr = err
	}

	if err := a.journal.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	if err := a.store.Unlock(); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	}

	a.logger.Debug("operation finished", "status", a.op.Status)
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

func (a *App) current() (*catalog.DirectoryRecord, error) {
	if a.currentDir == "" {
		return nil, ErrNoCurrentDirectory
	}
	d := a.catalog.Touch(a.currentDir)
	if d == nil {
		return nil, fmt.Errorf("%w: %s is not tracked", ErrNoCurrentDirectory, a.currentDir)
	}
	return d, nil
}

func (a *App) file(i int) (*catalog.DirectoryRecord, *catalog.FileRecord, error) {
	d, err := a.current()
	if err != nil {
		return nil, nil, err
	}
	f := d.TouchFile(i)
	if f == nil {
		return nil, nil, fmt.Errorf("%w: index %d (have %d)", ErrNoSuchFile, i, len(d.Files))
	}
	return d, f, nil
}

// resolve makes a user-supplied path absolute. Empty stays empty.
func resolve(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}
