// Package scan discovers candidate rule files in a single project
// directory and computes their content hashes.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Jercik/sync-rules-sub001/internal/utils"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Files larger than this are never hashed. Rule files are small text
// documents; anything bigger is treated as a hash failure.
const maxHashSize = 16 << 20

// FileInfo is one matched file inside a project.
type FileInfo struct {
	RelPath string
	AbsPath string
	// Hash is the lowercase hex MD5 of the file content. Empty means
	// hashing failed and the file compares unequal to everything.
	Hash         string
	Size         int64
	LastModified time.Time
	// IsLocal files match the reserved local naming convention. They are
	// scanned and reported but excluded from cross-project reconciliation.
	IsLocal bool
}

// Result maps project-relative paths to their file info.
type Result map[string]*FileInfo

type Scanner struct {
	rules    []string
	excludes *gitignore.GitIgnore
}

// NewScanner compiles rule and exclude patterns. Non-glob literals are
// expanded into the literal itself plus a recursive pattern beneath it,
// so ".cursor" matches both the entry and everything under it.
func NewScanner(rules, excludes []string) *Scanner {
	return &Scanner{
		rules:    expandPatterns(rules),
		excludes: gitignore.CompileIgnoreLines(expandPatterns(excludes)...),
	}
}

// Scan walks dir and returns every file matching the rule patterns.
// An unreadable dir fails the whole scan; unreadable files only lose
// their hash.
func (s *Scanner) Scan(ctx context.Context, dir string) (Result, error) {
	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", dir)
	}

	result := make(Result)
	var totalSize int64

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel := filepath.ToSlash(relPath)
		if rel == "." {
			return nil
		}

		// never follow symlinks
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if d.IsDir() {
			if s.excludes.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.excludes.MatchesPath(rel) || !s.matches(rel) {
			return nil
		}

		fi := &FileInfo{
			RelPath: rel,
			AbsPath: path,
			IsLocal: IsLocalName(filepath.Base(path)),
		}

		info, err := d.Info()
		if err != nil {
			slog.Warn("stat failed, file treated as differing", "path", rel, "error", err)
			result[rel] = fi
			return nil
		}
		fi.Size = info.Size()
		fi.LastModified = info.ModTime()

		switch {
		case !info.Mode().IsRegular():
			slog.Warn("not a regular file, hash skipped", "path", rel, "mode", info.Mode())
		case info.Size() > maxHashSize:
			slog.Warn("file too large, hash skipped", "path", rel, "size", humanize.Bytes(uint64(info.Size())))
		default:
			hash, err := utils.FileHash(path)
			if err != nil {
				slog.Warn("hash failed, file treated as differing", "path", rel, "error", err)
			} else {
				fi.Hash = hash
			}
			totalSize += info.Size()
		}

		result[rel] = fi
		return nil
	}

	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	slog.Debug("scanned", "dir", dir, "files", len(result), "size", humanize.Bytes(uint64(totalSize)))
	return result, nil
}

func (s *Scanner) matches(rel string) bool {
	for _, pattern := range s.rules {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// IsLocalName reports whether a base name matches the reserved local-file
// convention (`notes.local.md`, `local.md`). Local files stay private to
// their project.
func IsLocalName(base string) bool {
	return strings.Contains(base, ".local.") || strings.HasPrefix(base, "local.")
}

// expandPatterns turns non-glob literals into the literal plus a
// recursive variant so a bare directory name matches its contents too.
// Glob patterns pass through unchanged.
func expandPatterns(patterns []string) []string {
	expanded := make([]string, 0, len(patterns)*2)
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if p == "" {
			continue
		}
		if isGlob(p) {
			expanded = append(expanded, p)
			continue
		}
		expanded = append(expanded, p, p+"/**")
	}
	return expanded
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
