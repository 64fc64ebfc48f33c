// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sponsored loads the sponsored product identifiers that every
// catalog lookup includes. The set is read once at start-up and never
// refreshed for the lifetime of the process.
package sponsored

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/manual-preview/pkg/types"
)

// Load reads one identifier per line from path. Blank lines and lines
// starting with '#' are skipped and surrounding whitespace is trimmed.
// A missing file is not an error; Load returns an empty list.
func Load(path string) ([]types.ProductID, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening sponsored list %s: %w", path, err)
	}
	defer f.Close()

	var ids []types.ProductID
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, types.ProductID(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading sponsored list %s: %w", path, err)
	}

	return Merge(ids), nil
}

// Merge returns the union of lists in first-seen order. Empty ids are
// dropped. The inputs are not modified.
func Merge(lists ...[]types.ProductID) []types.ProductID {
	seen := make(map[types.ProductID]struct{})
	var out []types.ProductID
	for _, list := range lists {
		for _, id := range list {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Resolve combines the file-based list with the inline ids from cfg.
func Resolve(cfg types.SponsoredConfig) ([]types.ProductID, error) {
	fromFile, err := Load(cfg.File)
	if err != nil {
		return nil, err
	}
	return Merge(fromFile, types.ProductIDs(cfg.IDs)), nil
}
