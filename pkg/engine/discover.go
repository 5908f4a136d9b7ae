package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands input paths to manifest files. Directories are
// expanded by extension, non-recursively or recursively per the caller's
// preference; explicit file paths are accepted as-is.
func Discover(paths []string, recursive bool) ([]string, error) {
	pattern := "*.{yaml,yml}"
	if recursive {
		pattern = "**/*.{yaml,yml}"
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(p), pattern)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", p, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			files = append(files, filepath.Join(p, m))
		}
	}
	return files, nil
}
