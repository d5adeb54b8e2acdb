package fs

import (
	"os"
	"path/filepath"
	"strings"
)

// ExportTarget describes how an export path should be used as a copy destination.
type ExportTarget int

const (
	// ExportInvalid means neither the path nor its parent is an existing directory.
	ExportInvalid ExportTarget = iota
	// ExportAsDirectory means the path is an existing directory; the file keeps its name inside it.
	ExportAsDirectory
	// ExportAsFile means the parent of the path exists; the path itself is the destination file.
	ExportAsFile
)

func (t ExportTarget) String() string {
	switch t {
	case ExportAsDirectory:
		return "directory"
	case ExportAsFile:
		return "file"
	default:
		return "invalid"
	}
}

// IsValidDirectory reports whether path names an accessible directory.
// Paths of length one or less are rejected outright: they are treated as
// incomplete input (an empty string, a bare drive letter).
func IsValidDirectory(path string) bool {
	if len(path) <= 1 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsValidFile reports whether path names an accessible regular file.
func IsValidFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ParentPath returns the parent of path, or "" when path has no parent.
func ParentPath(path string) string {
	if path == "" {
		return ""
	}
	parent := filepath.Dir(path)
	if parent == path || parent == "." {
		return ""
	}
	return parent
}

// ClassifyExportTarget decides how path can serve as an export destination.
func ClassifyExportTarget(path string) ExportTarget {
	if IsValidDirectory(path) {
		return ExportAsDirectory
	}
	if IsValidDirectory(ParentPath(path)) {
		return ExportAsFile
	}
	return ExportInvalid
}

// Join joins base and rel with a single forward slash. Trailing separators on
// base and leading separators on rel are dropped, whichever slash style they use.
// An empty operand returns the other one unchanged.
func Join(base, rel string) string {
	if base == "" {
		return rel
	}
	if rel == "" {
		return base
	}
	base = strings.TrimRight(base, `/\`)
	rel = strings.TrimLeft(rel, `/\`)
	return base + "/" + rel
}
