package catalog

import (
	"strings"
	"time"

	"ddbackup/internal/fs"
)

// TimestampLayout is the layout of FileRecord.LastEdited. It sorts
// lexicographically in time order.
const TimestampLayout = "2006-01-02 15:04:05"

// FileRecord is one tracked file: its identity plus state derived from the filesystem.
// LastEdited, Synced and ExportValid are only as current as the last refresh.
type FileRecord struct {
	Name          string
	LastEdited    string
	ExportPath    string
	Synced        bool
	ExportValid   bool
	RemoveAllowed bool
}

// NewFileRecord creates a record for the file at path. The modification time is
// probed immediately; if the probe fails the current time is used instead.
func NewFileRecord(path string, clock Clock) *FileRecord {
	return &FileRecord{
		Name:       baseName(path),
		LastEdited: lastEditedOrNow(path, clock),
	}
}

// RestoreFileRecord creates a record holding only the persisted fields.
// Callers are expected to Refresh it before use.
func RestoreFileRecord(name, exportPath string) *FileRecord {
	return &FileRecord{
		Name:       name,
		ExportPath: exportPath,
	}
}

// BackupFilename returns the name of this file's backup copy:
// "<timestamp token>_<name>", where the token is LastEdited with spaces and
// colons turned into hyphens. Each distinct modification time gets its own backup.
func (f *FileRecord) BackupFilename() string {
	token := strings.NewReplacer(" ", "-", ":", "-").Replace(f.LastEdited)
	return token + "_" + f.Name
}

// SourcePath returns the path of the file inside sourceDir.
func (f *FileRecord) SourcePath(sourceDir string) string {
	return fs.Join(sourceDir, f.Name)
}

// RefreshLastEdited re-probes the modification time of the file in sourceDir.
func (f *FileRecord) RefreshLastEdited(sourceDir string, clock Clock) {
	f.LastEdited = lastEditedOrNow(f.SourcePath(sourceDir), clock)
}

// RefreshSynced sets Synced if backupDir exists and holds this file's backup copy.
func (f *FileRecord) RefreshSynced(backupDir string) {
	f.Synced = fs.IsValidDirectory(backupDir) &&
		fs.IsValidFile(fs.Join(backupDir, f.BackupFilename()))
}

// RefreshExportValid recomputes ExportValid from ExportPath.
// An empty export path is valid: no export is not an error.
func (f *FileRecord) RefreshExportValid() {
	if f.ExportPath == "" {
		f.ExportValid = true
		return
	}
	f.ExportValid = fs.ClassifyExportTarget(f.ExportPath) != fs.ExportInvalid
}

// Refresh recomputes every derived field. LastEdited goes first because the
// backup filename checked by RefreshSynced depends on it.
func (f *FileRecord) Refresh(sourceDir, backupDir string, clock Clock) {
	f.RefreshLastEdited(sourceDir, clock)
	f.RefreshSynced(backupDir)
	f.RefreshExportValid()
}

// lastEditedOrNow is the single place where a failed modification-time probe
// falls back to the current time.
func lastEditedOrNow(path string, clock Clock) string {
	t, ok := fs.ModTime(path)
	if !ok {
		t = clock.Now()
	}
	return formatTimestamp(t)
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

// baseName handles both slash styles, since paths arrive from user input.
func baseName(path string) string {
	path = strings.TrimRight(path, `/\`)
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return path
}
