package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-directory file listing names that may not be tracked.
const IgnoreFileName = ".ddbignore"

// defaultIgnorePatterns cover the ignore file itself and the temp files CopyFile
// leaves behind if the process dies mid-copy.
var defaultIgnorePatterns = []string{IgnoreFileName, ".ddb-tmp-*"}

// IgnoreMatcher rejects file names that must not be added to a directory record.
// Patterns use filepath.Match syntax and are matched against the base name.
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher builds a matcher from the default patterns plus rawPatterns.
// Blank entries and entries starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	patterns := append([]string{}, defaultIgnorePatterns...)
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, raw)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// With returns a new matcher holding m's patterns plus extra.
func (m *IgnoreMatcher) With(extra []string) *IgnoreMatcher {
	return NewIgnoreMatcher(append(append([]string{}, m.patterns...), extra...))
}

// Match reports whether the file at path should be ignored.
func (m *IgnoreMatcher) Match(path string) bool {
	name := filepath.Base(filepath.ToSlash(path))
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}

	for _, p := range m.patterns {
		matched, err := filepath.Match(p, name)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads the ignore file in dir and returns its raw lines.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(dir string) ([]string, error) {
	f, err := os.Open(Join(dir, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
