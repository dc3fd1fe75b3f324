// Package restore orchestrates restores from local folders, zip archives,
// or a GitHub repository, overwriting the OBS configuration directory after
// a best-effort safety snapshot.
package restore

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/github"
	"github.com/Celestial04/obs-backup/internal/services/obsdir"
	"github.com/rs/zerolog"
)

// Service defines the interface for the restore orchestrator.
type Service interface {
	RestoreLocal(ctx context.Context, path string) (*models.RestoreResult, error)
	RestoreZip(ctx context.Context, zipPath string) (*models.RestoreResult, error)
	RestoreFolder(ctx context.Context, dir string) (*models.RestoreResult, error)
	RestoreRemote(ctx context.Context, gh models.GitHubConfig, remotePath string) (*models.RestoreResult, error)
}

// GitHubFactory builds a contents client for a token.
type GitHubFactory func(token string) github.Service

// Impl implements the Service interface.
type Impl struct {
	locator   obsdir.Service
	newGitHub GitHubFactory
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a new restore orchestrator.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		locator: obsdir.New(logger),
		newGitHub: func(token string) github.Service {
			return github.New(logger, token)
		},
		logger: logger,
		now:    time.Now,
	}
}

// NewWithServices creates a new restore orchestrator with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	locator obsdir.Service,
	newGitHub GitHubFactory,
	now func() time.Time,
) *Impl {
	return &Impl{
		locator:   locator,
		newGitHub: newGitHub,
		logger:    logger,
		now:       now,
	}
}

// RestoreLocal restores from a local source, dispatching on its shape: a
// .zip file or a backup folder.
func (s *Impl) RestoreLocal(ctx context.Context, path string) (*models.RestoreResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, models.ErrInvalidBackupSource)
	}
	if info.IsDir() {
		return s.RestoreFolder(ctx, path)
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return s.RestoreZip(ctx, path)
	}
	return nil, fmt.Errorf("%s: %w", path, models.ErrInvalidBackupSource)
}

// RestoreZip extracts a zip bundle to a temporary directory and restores
// from it. A top-level app directory inside the archive is treated as the
// backup root; otherwise the extraction root is used directly.
func (s *Impl) RestoreZip(ctx context.Context, zipPath string) (*models.RestoreResult, error) {
	tmp, err := os.MkdirTemp("", "obs-restore-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	if err := extractZip(zipPath, tmp); err != nil {
		return nil, err
	}

	root := filepath.Join(tmp, models.AppDirName)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		root = tmp
	}

	pairs, err := collectPairs(root)
	if err != nil {
		return nil, err
	}
	return s.restorePairs(pairs)
}

// RestoreFolder restores from a local backup folder. The folder may contain
// the app directory, be the app directory itself, or hold a single bundle
// folder containing it (one level of indirection).
func (s *Impl) RestoreFolder(ctx context.Context, dir string) (*models.RestoreResult, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", dir, models.ErrInvalidBackupSource)
	}

	root, err := resolveBackupRoot(dir)
	if err != nil {
		return nil, err
	}

	pairs, err := collectPairs(root)
	if err != nil {
		return nil, err
	}
	return s.restorePairs(pairs)
}

// RestoreRemote fetches a backup tree from GitHub and restores it. The
// traversal is iterative with an explicit stack, bounding memory to the
// pending directories.
func (s *Impl) RestoreRemote(ctx context.Context, gh models.GitHubConfig, remotePath string) (*models.RestoreResult, error) {
	if gh.Token == "" || gh.Repository == "" || remotePath == "" {
		return nil, models.ErrMissingCredentials
	}

	client := s.newGitHub(gh.Token)
	base := github.JoinPath(remotePath, models.AppDirName)
	s.logger.Info().Str("repository", gh.Repository).Str("path", base).Msg("fetching remote backup")

	var pairs []models.RestorePair
	stack := []string{base}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		items, err := client.ListDir(ctx, gh.Repository, gh.Branch, dir)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			switch it.Type {
			case models.ContentTypeDir:
				stack = append(stack, it.Path)
			case models.ContentTypeFile:
				data, _, err := client.GetFileContent(ctx, gh.Repository, gh.Branch, it.Path)
				if err != nil {
					return nil, err
				}
				rel, ok := github.RelUnder(it.Path, base)
				if !ok {
					return nil, fmt.Errorf("entry %s outside backup root %s: %w", it.Path, base, models.ErrInvalidBackupSource)
				}
				pairs = append(pairs, models.RestorePair{RelPath: rel, Data: data})
			}
		}
	}

	if len(pairs) == 0 {
		return nil, models.ErrEmptyRemoteBackup
	}
	return s.restorePairs(pairs)
}

// restorePairs overwrites the config tree with the given files, snapshotting
// the current state first when one exists.
func (s *Impl) restorePairs(pairs []models.RestorePair) (*models.RestoreResult, error) {
	cfgDir, err := s.locator.DirAny()
	if err != nil {
		return nil, err
	}

	snapshot := ""
	if _, err := os.Stat(cfgDir); err == nil {
		snapshot = s.snapshotConfig(cfgDir)
	} else if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating config dir %s: %w", cfgDir, err)
	}

	for _, pair := range pairs {
		dest := filepath.Join(cfgDir, filepath.FromSlash(pair.RelPath))

		// Clear whatever currently occupies the destination, best effort.
		if info, err := os.Lstat(dest); err == nil {
			if info.IsDir() {
				_ = os.RemoveAll(dest)
			} else {
				_ = os.Remove(dest)
			}
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, pair.Data, 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", dest, err)
		}
	}

	s.logger.Info().Int("files", len(pairs)).Str("config", cfgDir).Msg("restore complete")
	return &models.RestoreResult{Files: len(pairs), SnapshotPath: snapshot}, nil
}

// snapshotConfig copies the current config tree to a timestamped sibling
// directory. Failure is a warning; the restore proceeds without the safety
// copy.
func (s *Impl) snapshotConfig(cfgDir string) string {
	name := fmt.Sprintf("%s.before-restore-%s", models.AppDirName, s.now().Format(models.TimestampFormat))
	dest := filepath.Join(filepath.Dir(cfgDir), name)

	if _, err := os.Stat(dest); err == nil {
		_ = os.RemoveAll(dest)
	}

	s.logger.Info().Str("snapshot", dest).Msg("backing up current config")
	if err := copyTree(cfgDir, dest); err != nil {
		s.logger.Warn().Err(err).Msg("unable to back up previous state")
		return ""
	}
	return dest
}

// resolveBackupRoot finds the app directory inside a local backup folder,
// tolerating one level of bundle nesting.
func resolveBackupRoot(dir string) (string, error) {
	direct := filepath.Join(dir, models.AppDirName)
	if info, err := os.Stat(direct); err == nil && info.IsDir() {
		return direct, nil
	}
	if filepath.Base(dir) == models.AppDirName {
		return dir, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*", models.AppDirName))
	if err == nil {
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				return m, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", dir, models.ErrInvalidBackupSource)
}

// collectPairs reads every file under root into restore pairs keyed by
// POSIX-style relative path.
func collectPairs(root string) ([]models.RestorePair, error) {
	var pairs []models.RestorePair
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		pairs = append(pairs, models.RestorePair{RelPath: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func extractZip(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", zipPath, err)
	}
	defer func() { _ = zr.Close() }()

	cleanDest := filepath.Clean(dest)
	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %s escapes extraction dir: %w", f.Name, models.ErrInvalidBackupSource)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
			continue
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading zip entry %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", target, err)
	}
	return nil
}

// copyTree recursively copies a directory tree; regular files only.
func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
