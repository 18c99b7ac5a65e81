package main

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// discoverFiles walks root collecting every regular file, skipping symlink
// cycles and anything matching excludePatterns — the same walk-and-filter
// shape the teacher's indexing pipeline uses, reduced to what a one-shot
// analyze run needs (no fsnotify watch loop, no visited-dir memoization
// across calls).
func discoverFiles(root string, excludePatterns []string) ([]string, error) {
	visited := map[string]bool{}
	var out []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil // one unreadable entry never aborts the whole walk
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if path != root {
				real, err := filepath.EvalSymlinks(path)
				if err != nil {
					return nil
				}
				if visited[real] {
					return filepath.SkipDir
				}
				visited[real] = true

				if matchesAny(excludePatterns, rel) {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if matchesAny(excludePatterns, rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	return out, err
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
