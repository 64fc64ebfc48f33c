// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manual

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Library is the manual storage directory. It holds no listing of its own:
// every call re-reads the directory, so files added or removed on disk are
// seen by the next render.
type Library struct {
	dir string
}

// NewLibrary returns a Library rooted at dir, resolved to an absolute path.
func NewLibrary(dir string) (*Library, error) {
	if dir == "" {
		return nil, fmt.Errorf("manual directory is not configured")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving manual directory %s: %w", dir, err)
	}
	return &Library{dir: abs}, nil
}

// Dir returns the absolute manual directory.
func (l *Library) Dir() string { return l.dir }

// Manuals lists the PDF files directly inside the manual directory, sorted
// by name. Only regular files whose name ends in ".pdf" (any case) count;
// directories and symlinks are ignored.
func (l *Library) Manuals() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading manual directory %s: %w", l.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Resolve returns the absolute path of the manual called name. The name
// must be a bare file name that exactly matches an entry of a fresh
// listing; anything else, including names with directory components or dot
// segments, fails with ErrManualNotFound.
func (l *Library) Resolve(name string) (string, error) {
	if !isBareName(name) {
		return "", fmt.Errorf("%w: %q is not a plain file name", ErrManualNotFound, name)
	}

	manuals, err := l.Manuals()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrManualNotFound, err)
	}
	i := sort.SearchStrings(manuals, name)
	if i == len(manuals) || manuals[i] != name {
		return "", fmt.Errorf("%w: %s", ErrManualNotFound, name)
	}
	return filepath.Join(l.dir, name), nil
}

func isBareName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}
