package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"vigil/internal/state"
)

// Snapshot is a content-change fingerprint of a workspace tree: one entry per
// regular file, keyed by slash-separated path relative to the root, valued by
// the file's last-modified time.
//
// Mtimes are truncated to whole seconds on every capture, so precision loss
// is applied consistently and an unchanged tree always produces an equal
// snapshot.
type Snapshot map[string]time.Time

// excludedDirs are never walked: the supervisor's own bookkeeping directory
// and version-control metadata must not count as task progress.
var excludedDirs = map[string]bool{
	state.BookkeepingDir: true,
	".git":               true,
	".hg":                true,
	".svn":               true,
	"node_modules":       true,
}

// Capture walks the workspace tree rooted at root and fingerprints every
// regular file. Additional ignore patterns are matched (filepath.Match) against
// directory and file base names.
func Capture(root string, ignore []string) (Snapshot, error) {
	snap := make(Snapshot)

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		name := filepath.Base(path)

		if info.IsDir() {
			if path == root {
				return nil
			}
			if excludedDirs[name] || matchesAny(ignore, name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		if matchesAny(ignore, name) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path: %w", err)
		}

		snap[filepath.ToSlash(relPath)] = info.ModTime().Truncate(time.Second).UTC()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk workspace %s: %w", root, err)
	}

	return snap, nil
}

// Diff returns the sorted relative paths that changed between two snapshots:
// files whose mtime differs plus files present in exactly one of the two.
func Diff(old, current Snapshot) []string {
	var changed []string

	for path, mtime := range current {
		prev, ok := old[path]
		if !ok || !prev.Equal(mtime) {
			changed = append(changed, path)
		}
	}
	for path := range old {
		if _, ok := current[path]; !ok {
			changed = append(changed, path)
		}
	}

	sort.Strings(changed)
	return changed
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
