package indexer

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery walks a source tree and selects the files to index.
type FileDiscovery struct {
	rootDir        string
	codePatterns   []compiledPattern
	ignorePatterns []compiledPattern
}

// NewFileDiscovery compiles the include and ignore globs for one root.
func NewFileDiscovery(rootDir string, codePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{rootDir: rootDir}

	for _, pattern := range codePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		fd.codePatterns = append(fd.codePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		fd.ignorePatterns = append(fd.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	return fd, nil
}

// DiscoverFiles returns root-relative paths of all code files, sorted for
// reproducible runs. Ignored directories are pruned, not descended into.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	var files []string

	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && fd.ignored(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if fd.ignored(relPath) {
			return nil
		}
		if fd.matchesCode(relPath) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (fd *FileDiscovery) matchesCode(relPath string) bool {
	for _, cp := range fd.codePatterns {
		if cp.glob.Match(relPath) {
			return true
		}
		// "**/*.go" does not match a root-level "main.go" with a '/'
		// separator, so bare file names are also tried against the leaf
		// of the pattern.
		if !strings.Contains(relPath, "/") {
			if leaf := leafPattern(cp.pattern); leaf != "" {
				if g, err := glob.Compile(leaf, '/'); err == nil && g.Match(relPath) {
					return true
				}
			}
		}
	}
	return false
}

func (fd *FileDiscovery) ignored(relPath string) bool {
	for _, cp := range fd.ignorePatterns {
		if cp.glob.Match(relPath) || cp.glob.Match(strings.TrimSuffix(relPath, "/")) {
			return true
		}
	}
	return false
}

func leafPattern(pattern string) string {
	if idx := strings.LastIndex(pattern, "/"); idx >= 0 {
		return pattern[idx+1:]
	}
	return pattern
}
