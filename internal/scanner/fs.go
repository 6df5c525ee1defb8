// Package scanner implements the single-pass filesystem discovery (C2)
// that every check in a scan shares, grounded in the teacher repo's
// internal/world.Scanner walk (internal/world/fs.go).
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codenerd-labs/auditor/internal/logging"
	"go.uber.org/zap"
)

// defaultExcludedDirs are always excluded regardless of configuration,
// per spec.md §4.2.
var defaultExcludedDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
}

// ScanFiles performs a single recursive walk of root, returning
// '/'-separated paths relative to root, sorted lexicographically by the
// full relative path. Unreadable subtrees are skipped silently, per
// spec.md §4.2's "infallible for readable filesystems" contract.
func ScanFiles(root string, extraExcludedDirs []string) ([]string, error) {
	log := logging.Scanner()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot
	}

	excluded := map[string]bool{}
	for k, v := range defaultExcludedDirs {
		excluded[k] = v
	}
	for _, d := range extraExcludedDirs {
		excluded[d] = true
	}

	var files []string
	walkDir(realRoot, realRoot, "", excluded, &files, log)
	sort.Strings(files)
	return files, nil
}

func walkDir(realRoot, dirAbs, relDir string, excluded map[string]bool, files *[]string, log *zap.SugaredLogger) {
	entries, err := os.ReadDir(dirAbs)
	if err != nil {
		log.Debugf("skipping unreadable directory %s: %v", dirAbs, err)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		name := entry.Name()
		childAbs := filepath.Join(dirAbs, name)
		childRel := name
		if relDir != "" {
			childRel = relDir + "/" + name
		}

		info, err := os.Lstat(childAbs)
		if err != nil {
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(childAbs)
			if err != nil || !withinRoot(realRoot, target) {
				continue // do not follow symlinks that escape root
			}
			targetInfo, err := os.Stat(target)
			if err != nil {
				continue
			}
			if targetInfo.IsDir() {
				walkDir(realRoot, target, childRel, excluded, files, log)
			} else {
				*files = append(*files, toSlash(childRel))
			}
			continue
		}

		if info.IsDir() {
			if strings.HasPrefix(name, ".") {
				continue // dotfiles excluded, per spec.md §4.2
			}
			if excluded[name] {
				continue
			}
			walkDir(realRoot, childAbs, childRel, excluded, files, log)
			continue
		}

		*files = append(*files, toSlash(childRel))
	}
}

func withinRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

func toSlash(p string) string {
	return filepath.ToSlash(p)
}
