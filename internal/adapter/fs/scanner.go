// Package fs locates ingestable documents on disk.
package fs

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner finds PDF files under a root directory using doublestar
// include and exclude patterns matched against slash-separated paths
// relative to the root.
type Scanner struct {
	includes []string
	excludes []string
}

func NewScanner(includes, excludes []string) *Scanner {
	if len(includes) == 0 {
		includes = []string{"**/*.pdf"}
	}
	return &Scanner{
		includes: includes,
		excludes: excludes,
	}
}

// Scan returns the matching file paths in deterministic order so
// repeated bulk ingests process documents identically.
func (s *Scanner) Scan(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && s.matchesAny(s.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if s.matchesAny(s.includes, rel) && !s.matchesAny(s.excludes, rel) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func (s *Scanner) matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
