package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DiscoverOptions controls how DiscoverImages expands its arguments.
type DiscoverOptions struct {
	// Recursive descends into subdirectories (class folders of an overlay
	// dataset, for example).
	Recursive bool
	// Include and Exclude are filepath.Match patterns on the base name.
	// Exclude wins; an empty Include admits every supported image.
	Include []string
	Exclude []string
	// Hidden admits dot-files and dot-directories found while walking.
	Hidden bool
}

// DiscoverImages expands files and directories into a sorted, duplicate-free
// list of supported image paths. Files named explicitly are only subject to
// the patterns, not to the extension or hidden-file checks.
func DiscoverImages(args []string, opts DiscoverOptions) ([]string, error) {
	var found []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if opts.admits(arg) {
				found = append(found, filepath.Clean(arg))
			}
			continue
		}
		files, err := opts.walk(arg)
		if err != nil {
			return nil, err
		}
		found = append(found, files...)
	}

	slices.Sort(found)
	return slices.Compact(found), nil
}

func (o DiscoverOptions) walk(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		hidden := strings.HasPrefix(d.Name(), ".")
		if d.IsDir() {
			if !o.Recursive || (hidden && !o.Hidden) {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden && !o.Hidden {
			return nil
		}
		if IsSupportedImage(path) && o.admits(path) {
			files = append(files, filepath.Clean(path))
		}
		return nil
	})
	return files, err
}

func (o DiscoverOptions) admits(path string) bool {
	base := filepath.Base(path)
	if matchesAny(base, o.Exclude) {
		return false
	}
	return len(o.Include) == 0 || matchesAny(base, o.Include)
}

func matchesAny(base string, patterns []string) bool {
	return slices.ContainsFunc(patterns, func(p string) bool {
		ok, _ := filepath.Match(p, base)
		return ok
	})
}
