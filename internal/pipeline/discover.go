package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Discover walks root and returns every regular file beneath it, plus
// symlinks that resolve to regular files, sorted lexicographically.
// Directories reached through symlinks are not descended into.
//
// Entries and subtrees that cannot be read are skipped and reported to
// onSkip (which may be nil); the walk carries on. Only a failure to read
// root itself is returned.
func Discover(root string, onSkip func(path string, err error)) ([]string, error) {
	if onSkip == nil {
		onSkip = func(string, error) {}
	}

	// A symlinked root is walked through its target but reported under the
	// name the caller used.
	walkRoot := root
	if fi, err := os.Lstat(root); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			return nil, err
		}
		walkRoot = resolved
	}

	var files []string
	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == walkRoot {
				return err
			}
			onSkip(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return nil
		case d.Type().IsRegular():
			files = append(files, path)
		case d.Type()&fs.ModeSymlink != 0:
			fi, err := os.Stat(path)
			if err != nil {
				onSkip(path, err)
				return nil
			}
			if fi.Mode().IsRegular() {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if walkRoot != root {
		for i, p := range files {
			rel, err := filepath.Rel(walkRoot, p)
			if err == nil {
				files[i] = filepath.Join(root, rel)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
