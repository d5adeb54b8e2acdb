package catalog

import "strings"

// Catalog is the full set of tracked directories. Directory paths are
// compared case-insensitively; the catalog never holds two records whose
// paths differ only by case.
type Catalog struct {
	Directories []*DirectoryRecord
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

// Find returns a read-only snapshot of the directory matching path.
func (c *Catalog) Find(path string) (DirectoryRecord, bool) {
	d := c.Touch(path)
	if d == nil {
		return DirectoryRecord{}, false
	}
	return d.snapshot(), true
}

// Touch returns the directory matching path for in-place mutation, or nil.
func (c *Catalog) Touch(path string) *DirectoryRecord {
	for _, d := range c.Directories {
		if strings.EqualFold(d.Path, path) {
			return d
		}
	}
	return nil
}

// TouchOrInsert returns the directory matching path, creating and appending
// an empty record if none exists. This is how a directory becomes tracked.
func (c *Catalog) TouchOrInsert(path string) *DirectoryRecord {
	if d := c.Touch(path); d != nil {
		return d
	}
	d := NewDirectoryRecord(path, "")
	c.Directories = append(c.Directories, d)
	return d
}

// Len returns the number of tracked directories.
func (c *Catalog) Len() int {
	return len(c.Directories)
}

// Snapshot returns read-only copies of all directories, in order.
func (c *Catalog) Snapshot() []DirectoryRecord {
	out := make([]DirectoryRecord, len(c.Directories))
	for i, d := range c.Directories {
		out[i] = d.snapshot()
	}
	return out
}
