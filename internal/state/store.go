package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"ddbackup/internal/catalog"
)

var (
	// ErrMalformedState is wrapped by Load when the state file exists but cannot be parsed.
	ErrMalformedState = errors.New("malformed state file")
	// ErrStateLocked is returned by Lock when another process holds the state lock.
	ErrStateLocked = errors.New("state file is locked by another process")
)

// Store persists a catalog and the current directory to a single file.
type Store struct {
	path   string
	codec  Codec
	clock  catalog.Clock
	logger catalog.Logger
	flock  *flock.Flock
}

// NewStore creates a Store for path. The codec is chosen by file extension.
func NewStore(path string, clock catalog.Clock, logger catalog.Logger) (*Store, error) {
	codec, err := CodecForPath(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		path:   path,
		codec:  codec,
		clock:  clock,
		logger: logger,
		flock:  flock.New(path + ".lock"),
	}, nil
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Save writes the catalog and currentDir, replacing the previous state atomically.
func (s *Store) Save(c *catalog.Catalog, currentDir string) error {
	data := Encode(c, currentDir)

	var buf bytes.Buffer
	if err := s.codec.Encode(&buf, data); err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	if err := writeFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing state to %s: %w", s.path, err)
	}

	s.logger.Debug("state saved", "path", s.path, "directories", c.Len())
	return nil
}

// Load reads the state file and rebuilds the catalog against the live filesystem.
// A missing or unreadable file is a first run: an empty catalog and no error.
// A file that cannot be parsed yields an empty catalog and an error wrapping
// ErrMalformedState; the caller decides whether that is fatal.
func (s *Store) Load() (*catalog.Catalog, string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("no saved state", "path", s.path)
		} else {
			s.logger.Warn("saved state unreadable", "path", s.path, "error", err)
		}
		return catalog.New(), "", nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return catalog.New(), "", nil
	}

	var data SaveData
	if err := s.codec.Decode(bytes.NewReader(raw), &data); err != nil {
		return catalog.New(), "", fmt.Errorf("%w: %s: %v", ErrMalformedState, s.path, err)
	}

	c := Decode(&data, s.clock)
	s.logger.Debug("state loaded", "path", s.path, "directories", c.Len())
	return c, data.CurrentDirectory, nil
}

// Quarantine moves the state file aside to <path>.corrupt-<timestamp> and
// returns the new path. Used after a malformed load so the next Save does not
// overwrite what the user had.
func (s *Store) Quarantine() (string, error) {
	dest := fmt.Sprintf("%s.corrupt-%s", s.path, s.clock.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.path, dest); err != nil {
		return "", fmt.Errorf("quarantining state file: %w", err)
	}
	s.logger.Warn("malformed state moved aside", "path", s.path, "moved_to", dest)
	return dest, nil
}

// Lock takes an advisory lock next to the state file so two processes cannot
// interleave a load/save cycle.
func (s *Store) Lock() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	locked, err := s.flock.TryLock()
	if err != nil {
		return fmt.Errorf("locking state: %w", err)
	}
	if !locked {
		return ErrStateLocked
	}
	return nil
}

// Unlock releases the lock taken by Lock. The lock file is left in place.
// It is a no-op if this process does not hold the lock.
func (s *Store) Unlock() error {
	if !s.flock.Locked() {
		return nil
	}
	if err := s.flock.Unlock(); err != nil {
		return fmt.Errorf("unlocking state: %w", err)
	}
	return nil
}

// Encode flattens a catalog into the persisted document.
func Encode(c *catalog.Catalog, currentDir string) *SaveData {
	data := &SaveData{
		CurrentDirectory: currentDir,
		Directories:      make([]SavedDirectory, 0, len(c.Directories)),
	}
	for _, d := range c.Directories {
		sd := SavedDirectory{
			Path:            d.Path,
			BackupDirectory: d.BackupDirectory,
			Files:           make([]SavedFile, 0, len(d.Files)),
		}
		for _, f := range d.Files {
			sd.Files = append(sd.Files, SavedFile{Name: f.Name, ExportPath: f.ExportPath})
		}
		data.Directories = append(data.Directories, sd)
	}
	return data
}

// Decode rebuilds a catalog from a persisted document. Every file is refreshed
// against the filesystem and each directory's files are sorted newest first.
// Directories whose paths differ only by case are merged.
func Decode(data *SaveData, clock catalog.Clock) *catalog.Catalog {
	c := catalog.New()
	for _, sd := range data.Directories {
		d := c.TouchOrInsert(sd.Path)
		d.BackupDirectory = sd.BackupDirectory
		for _, sf := range sd.Files {
			f := catalog.RestoreFileRecord(sf.Name, sf.ExportPath)
			f.Refresh(d.Path, d.BackupDirectory, clock)
			d.AddFile(f)
		}
		d.SortFilesByLastEdited()
	}
	return c
}

// writeFileAtomic writes data to a temp file beside path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
