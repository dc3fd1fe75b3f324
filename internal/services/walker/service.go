// Package walker enumerates the OBS configuration files to back up.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/rs/zerolog"
)

// Options control which parts of the config tree are enumerated.
type Options struct {
	IncludeLogs  bool
	IncludeCache bool
}

// Service defines the interface for config tree enumeration.
type Service interface {
	Walk(root string, opts Options, fn func(models.FileEntry) error) error
	Collect(root string, opts Options) ([]models.FileEntry, error)
}

// Impl implements the Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new walker service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// excludedDirs computes the root-relative directory exclusions for one walk.
// Caches are always excluded unless IncludeCache is set; the logs directory
// is excluded unless IncludeLogs is set.
func excludedDirs(opts Options) map[string]struct{} {
	excludes := map[string]struct{}{
		"crashes":                 {},
		"plugin_config/cef_cache": {},
		"cache":                   {},
	}
	if !opts.IncludeLogs {
		excludes["logs"] = struct{}{}
	}
	if opts.IncludeCache {
		delete(excludes, "cache")
		delete(excludes, "plugin_config/cef_cache")
	}
	return excludes
}

// isExcluded reports whether a directory with the given root-relative POSIX
// path and base name matches any exclusion. A match excludes the whole
// subtree.
func isExcluded(rel, name string, excludes map[string]struct{}) bool {
	for ex := range excludes {
		if rel == ex || strings.HasPrefix(rel, strings.TrimSuffix(ex, "/")+"/") || name == ex {
			return true
		}
	}
	return false
}

// Walk yields every file to back up under root, depth-first. Hidden
// directories, excluded directories, and .tmp/.lock files are skipped.
// The walk is lazy and restartable; fn returning an error aborts it.
func (s *Impl) Walk(root string, opts Options, fn func(models.FileEntry) error) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("obs config not found at %s: %w", root, models.ErrConfigNotFound)
	}

	excludes := excludedDirs(opts)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || isExcluded(rel, d.Name(), excludes) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasSuffix(d.Name(), ".tmp") || strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}

		return fn(models.FileEntry{RelPath: rel, AbsPath: path})
	})
}

// Collect runs Walk and gathers the entries into a slice.
func (s *Impl) Collect(root string, opts Options) ([]models.FileEntry, error) {
	var entries []models.FileEntry
	err := s.Walk(root, opts, func(e models.FileEntry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
