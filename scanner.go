package styletakeout

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/nettybun/styletakeout/internal/source"
)

// ScanStats tracks file discovery statistics
type ScanStats struct {
	FilesDiscovered int // Total files found by glob patterns
	FilesScanned    int // Files handed to the parser (after filtering)
	FilesSkipped    int // Files skipped due to filtering
}

// gitIgnoreEntry loads a root's .gitignore at most once
type gitIgnoreEntry struct {
	once sync.Once
	gi   *ignore.GitIgnore
}

var (
	gitIgnoreMu    sync.Mutex
	gitIgnoreCache = make(map[string]*gitIgnoreEntry)
)

// generatedSuffixes mark bundler output and type declarations, never sources with sites
var generatedSuffixes = []string{".d.ts", ".d.mts", ".d.cts", ".min.js", ".bundle.js"}

// isGenerated checks if a file is build output or a dependency
func isGenerated(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(slashed, suffix) {
			return true
		}
	}
	return slashed == "node_modules" ||
		strings.HasPrefix(slashed, "node_modules/") ||
		strings.Contains(slashed, "/node_modules/")
}

// loadGitIgnore loads root/.gitignore once per root (thread-safe).
// A missing .gitignore is fine.
func loadGitIgnore(root string) *ignore.GitIgnore {
	gitIgnoreMu.Lock()
	entry, ok := gitIgnoreCache[root]
	if !ok {
		entry = &gitIgnoreEntry{}
		gitIgnoreCache[root] = entry
	}
	gitIgnoreMu.Unlock()

	entry.once.Do(func() {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
		if err != nil {
			return
		}
		entry.gi = gi
	})
	return entry.gi
}

// shouldSkipFile determines if a file should be excluded from extraction.
// rel is relative to root.
//
// Two-layer filtering:
// 1. Pattern check (fast): generated files, node_modules, unsupported extensions
// 2. Gitignore check: files ignored by root/.gitignore
func shouldSkipFile(root, rel string) bool {
	if isGenerated(rel) || !source.Supported(rel) {
		return true
	}

	gi := loadGitIgnore(root)
	return gi != nil && gi.MatchesPath(filepath.ToSlash(rel))
}

// DiscoverSources expands includes under root. The returned paths are
// relative to root, deduplicated and sorted so every run visits files in the
// same order. Paths under any of the exclude directories are dropped.
func DiscoverSources(root string, includes []string, exclude ...string) ([]string, ScanStats, error) {
	stats := ScanStats{}
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range includes {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
		if err != nil {
			return nil, stats, fmt.Errorf("glob pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			rel, err := filepath.Rel(root, match)
			if err != nil {
				rel = match
			}
			if seen[rel] {
				continue
			}
			seen[rel] = true

			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			stats.FilesDiscovered++

			if shouldSkipFile(root, rel) || isUnder(match, exclude) {
				stats.FilesSkipped++
				continue
			}
			files = append(files, rel)
			stats.FilesScanned++
		}
	}

	sort.Strings(files)
	return files, stats, nil
}

// isUnder reports whether path lies inside one of dirs
func isUnder(path string, dirs []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		absDir, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absDir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// GetRelativePath returns a relative path from the current working directory
func GetRelativePath(absPath string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return absPath
	}

	rel, err := filepath.Rel(cwd, absPath)
	if err != nil {
		return absPath
	}

	return rel
}
