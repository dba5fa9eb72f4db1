// Package walker discovers candidate source files under a root path.
package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPath indicates the root path is missing or not a directory.
var ErrInvalidPath = errors.New("invalid root path")

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string // absolute
	RelPath string // slash-separated, relative to root
	Name    string
	Ext     string // lowercased, with dot
	Size    int64
}

// Options controls file discovery.
type Options struct {
	// Extensions is the allow-list: lowercased extensions with dot
	// (".go") or bare filenames for extensionless files ("Makefile").
	Extensions map[string]bool
	// ExcludePatterns are matched as substrings of path components, or as
	// glob patterns against the relative path and filename.
	ExcludePatterns []string
	// MaxFileSize is the byte-size ceiling; files above it are skipped.
	MaxFileSize int64
}

// DefaultMaxFileSize caps files at 10 MB when Options.MaxFileSize is zero.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Walk traverses root and returns eligible files in lexicographic relative
// path order. Unreadable entries are skipped, not fatal.
func Walk(root string, opts Options) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, root)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a readable directory", ErrInvalidPath, root)
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	globs := compilePatterns(opts.ExcludePatterns)

	var files []FileInfo
	filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if matchesExclude(d.Name(), rel, opts.ExcludePatterns, globs) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if matchesExclude(d.Name(), rel, opts.ExcludePatterns, globs) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if len(opts.Extensions) > 0 {
			// Extensionless files like Makefile match by name.
			if !opts.Extensions[ext] && !opts.Extensions[d.Name()] {
				return nil
			}
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if fi.Size() == 0 || fi.Size() > maxSize {
			return nil
		}

		files = append(files, FileInfo{
			Path:    path,
			RelPath: rel,
			Name:    d.Name(),
			Ext:     ext,
			Size:    fi.Size(),
		})
		return nil
	})

	return files, nil
}

func compilePatterns(patterns []string) []glob.Glob {
	out := make([]glob.Glob, len(patterns))
	for i, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			continue // invalid glob still participates as a substring pattern
		}
		out[i] = g
	}
	return out
}

// matchesExclude reports whether a name or relative path is excluded.
// Patterns match as substrings of any path component, or as globs against
// the relative path or the final name.
func matchesExclude(name, relPath string, patterns []string, globs []glob.Glob) bool {
	parts := strings.Split(relPath, "/")
	for i, p := range patterns {
		for _, part := range parts {
			if strings.Contains(part, p) {
				return true
			}
		}
		if g := globs[i]; g != nil && (g.Match(relPath) || g.Match(name)) {
			return true
		}
	}
	return false
}
