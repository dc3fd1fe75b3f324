// Package archiver writes local backup bundles, either as plain folders or
// zip archives.
package archiver

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/obsdir"
	"github.com/Celestial04/obs-backup/internal/services/walker"
	"github.com/rs/zerolog"
)

// Service defines the interface for local backup creation.
type Service interface {
	CreateFolder(baseDir string, opts walker.Options) (*models.BackupResult, error)
	CreateZip(baseDir string, opts walker.Options) (*models.BackupResult, error)
}

// Impl implements the Service interface.
type Impl struct {
	locator   obsdir.Service
	walkerSvc walker.Service
	logger    zerolog.Logger
	now       func() time.Time
	hostname  func() (string, error)
}

// New creates a new archiver service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		locator:   obsdir.New(logger),
		walkerSvc: walker.New(logger),
		logger:    logger,
		now:       time.Now,
		hostname:  os.Hostname,
	}
}

// NewWithDeps creates a new archiver service with custom collaborators (for testing).
func NewWithDeps(
	logger zerolog.Logger,
	locator obsdir.Service,
	walkerSvc walker.Service,
	now func() time.Time,
	hostname func() (string, error),
) *Impl {
	return &Impl{
		locator:   locator,
		walkerSvc: walkerSvc,
		logger:    logger,
		now:       now,
		hostname:  hostname,
	}
}

// BundleName builds a backup bundle name embedding the host identity and a
// timestamp, e.g. "obs-config-myhost-20240102-150405".
func BundleName(hostname func() (string, error), now func() time.Time) string {
	host, err := hostname()
	if err != nil || host == "" {
		host = "host"
	}
	return fmt.Sprintf("%s-%s-%s", models.BundlePrefix, host, now().Format(models.TimestampFormat))
}

// CreateFolder copies the config tree into a new timestamped bundle folder
// under baseDir and returns the bundle root path.
func (s *Impl) CreateFolder(baseDir string, opts walker.Options) (*models.BackupResult, error) {
	cfgDir, err := s.locator.Dir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup base %s: %w", baseDir, err)
	}

	bundle := BundleName(s.hostname, s.now)
	bundleRoot := filepath.Join(baseDir, bundle)
	targetRoot := filepath.Join(bundleRoot, models.AppDirName)

	count := 0
	err = s.walkerSvc.Walk(cfgDir, opts, func(e models.FileEntry) error {
		dest := filepath.Join(targetRoot, filepath.FromSlash(e.RelPath))
		if err := copyFile(e.AbsPath, dest); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("bundle", bundleRoot).Int("files", count).Msg("local backup created")
	return &models.BackupResult{BundleName: bundle, Destination: bundleRoot, Files: count}, nil
}

// CreateZip writes the config tree into a new timestamped zip archive under
// baseDir, with the app directory as the top-level entry prefix.
func (s *Impl) CreateZip(baseDir string, opts walker.Options) (*models.BackupResult, error) {
	cfgDir, err := s.locator.Dir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating backup base %s: %w", baseDir, err)
	}

	bundle := BundleName(s.hostname, s.now)
	zipPath := filepath.Join(baseDir, bundle+".zip")

	f, err := os.Create(zipPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", zipPath, err)
	}

	zw := zip.NewWriter(f)
	count := 0
	walkErr := s.walkerSvc.Walk(cfgDir, opts, func(e models.FileEntry) error {
		if err := addZipEntry(zw, e); err != nil {
			return err
		}
		count++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		_ = f.Close()
		_ = os.Remove(zipPath)
		return nil, walkErr
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("finalizing %s: %w", zipPath, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing %s: %w", zipPath, err)
	}

	s.logger.Info().Str("zip", zipPath).Int("files", count).Msg("zip backup created")
	return &models.BackupResult{BundleName: bundle, Destination: zipPath, Files: count}, nil
}

func addZipEntry(zw *zip.Writer, e models.FileEntry) error {
	info, err := os.Stat(e.AbsPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", e.AbsPath, err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header for %s: %w", e.AbsPath, err)
	}
	hdr.Name = path.Join(models.AppDirName, e.RelPath)
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", hdr.Name, err)
	}

	in, err := os.Open(e.AbsPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", e.AbsPath, err)
	}
	defer func() { _ = in.Close() }()

	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("compressing %s: %w", e.AbsPath, err)
	}
	return nil
}

// copyFile copies src to dest, creating parent directories and preserving
// the file mode and modification time.
func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dest, err)
	}

	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("setting times on %s: %w", dest, err)
	}
	return nil
}
