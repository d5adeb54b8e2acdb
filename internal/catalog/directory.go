package catalog

import "sort"

// DirectoryRecord is one tracked source directory, its paired backup
// directory and the files tracked within it. An empty BackupDirectory means
// no backup is configured. File names are not required to be unique.
type DirectoryRecord struct {
	Path            string
	BackupDirectory string
	Files           []*FileRecord
}

// NewDirectoryRecord creates an empty record for path.
func NewDirectoryRecord(path, backupDirectory string) *DirectoryRecord {
	return &DirectoryRecord{
		Path:            path,
		BackupDirectory: backupDirectory,
	}
}

// AddFile appends file to the directory's list.
func (d *DirectoryRecord) AddFile(file *FileRecord) {
	d.Files = append(d.Files, file)
}

// TouchFile returns the file at index for in-place mutation, or nil if index
// is out of range.
func (d *DirectoryRecord) TouchFile(index int) *FileRecord {
	if index < 0 || index >= len(d.Files) {
		return nil
	}
	return d.Files[index]
}

// RemoveFile removes the file at index. It does not check RemoveAllowed;
// that gate belongs to the caller. Returns false if index is out of range.
func (d *DirectoryRecord) RemoveFile(index int) bool {
	if index < 0 || index >= len(d.Files) {
		return false
	}
	d.Files = append(d.Files[:index], d.Files[index+1:]...)
	return true
}

// RefreshFiles recomputes the derived state of every file, in order.
func (d *DirectoryRecord) RefreshFiles(clock Clock) {
	for _, f := range d.Files {
		f.Refresh(d.Path, d.BackupDirectory, clock)
	}
}

// SortFilesByLastEdited orders files most recently modified first.
// Files with equal timestamps keep their relative order.
func (d *DirectoryRecord) SortFilesByLastEdited() {
	sort.SliceStable(d.Files, func(i, j int) bool {
		return d.Files[i].LastEdited > d.Files[j].LastEdited
	})
}

// snapshot returns a deep copy that shares nothing with d.
func (d *DirectoryRecord) snapshot() DirectoryRecord {
	files := make([]*FileRecord, len(d.Files))
	for i, f := range d.Files {
		c := *f
		files[i] = &c
	}
	return DirectoryRecord{
		Path:            d.Path,
		BackupDirectory: d.BackupDirectory,
		Files:           files,
	}
}
