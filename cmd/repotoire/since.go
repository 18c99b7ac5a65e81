package main

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// sinceFiles shells out to `git diff --name-only ref...HEAD` to list files
// changed since ref, the same exec.Command("git", ...)-with-cmd.Dir idiom
// the teacher's internal/git provider uses for every other git query.
// Returns absolute paths so the caller can intersect them directly against
// the discovered file list.
func sinceFiles(root, ref string) ([]string, error) {
	cmd := exec.Command("git", "diff", "--name-only", ref+"...HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff against %s: %w", ref, err)
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		files = append(files, filepath.Join(root, line))
	}
	return files, nil
}
