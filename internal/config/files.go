package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// ErrUnsupportedExtension is returned for explicit inputs that are not C sources
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// SourceExtensions are the file extensions accepted as input
var SourceExtensions = []string{".c", ".h", ".cpp"}

// IsSourceFile reports whether path has one of SourceExtensions
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ResolveInputs expands the given paths into a sorted, de-duplicated list of
// source files. Directories are walked recursively, arguments containing glob
// meta characters are matched with ** support, and explicit files must carry
// a source extension. Files matching an ignore pattern are dropped.
func (c *Config) ResolveInputs(paths []string) ([]string, error) {
	fileSet := make(map[string]bool)

	for _, p := range paths {
		switch {
		case hasMeta(p):
			matches, err := expandGlob(p)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				fileSet[m] = true
			}

		default:
			info, err := os.Stat(p)
			if err != nil {
				return nil, fmt.Errorf("stat %s: %w", p, err)
			}
			if info.IsDir() {
				files, err := walkSources(p, nil)
				if err != nil {
					return nil, err
				}
				for _, f := range files {
					fileSet[f] = true
				}
				continue
			}
			if !IsSourceFile(p) {
				return nil, fmt.Errorf("%s: %w (want one of %s)", p, ErrUnsupportedExtension, strings.Join(SourceExtensions, ", "))
			}
			fileSet[filepath.Clean(p)] = true
		}
	}

	var result []string
	for f := range fileSet {
		if !c.ShouldIgnoreFile(f) {
			result = append(result, f)
		}
	}
	sort.Strings(result)
	return result, nil
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	slashed := filepath.ToSlash(filePath)
	for _, pattern := range c.Lint.IgnorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		if g.Match(slashed) || g.Match(filepath.Base(filePath)) {
			return true
		}
	}
	return false
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// expandGlob matches pattern against the source files below its static prefix
func expandGlob(pattern string) ([]string, error) {
	slashed := filepath.ToSlash(pattern)
	g, err := glob.Compile(slashed, '/')
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	base := globBase(slashed)
	if _, err := os.Stat(base); err != nil {
		return nil, nil
	}
	return walkSources(base, func(path string) bool {
		return g.Match(filepath.ToSlash(path))
	})
}

// globBase returns the directory part of pattern before the first meta character
func globBase(pattern string) string {
	idx := strings.IndexAny(pattern, "*?[{")
	if idx < 0 {
		return filepath.Dir(pattern)
	}
	dir := pattern[:idx]
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	} else {
		dir = "."
	}
	if dir == "" {
		dir = "/"
	}
	return filepath.FromSlash(dir)
}

func walkSources(root string, keep func(string) bool) ([]string, error) {
	var results []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if d.IsDir() {
			return nil
		}
		if !IsSourceFile(path) {
			return nil
		}
		if keep != nil && !keep(path) {
			return nil
		}
		results = append(results, path)
		return nil
	})
	return results, err
}
