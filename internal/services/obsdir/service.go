// Package obsdir resolves the platform-specific OBS Studio configuration
// directory.
package obsdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for locating the OBS configuration directory.
type Service interface {
	// Dir returns the config directory, failing when it does not exist.
	Dir() (string, error)
	// DirAny returns the config directory path without checking that it
	// exists. Restore needs the target path even before first use.
	DirAny() (string, error)
}

// Impl implements the Service interface.
type Impl struct {
	logger zerolog.Logger
	goos   string
	getenv func(string) string
	home   func() (string, error)
}

// New creates a locator for the current platform.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		logger: logger,
		goos:   runtime.GOOS,
		getenv: os.Getenv,
		home:   os.UserHomeDir,
	}
}

// NewWithPlatform creates a locator with explicit platform inputs (for testing).
func NewWithPlatform(logger zerolog.Logger, goos string, getenv func(string) string, home func() (string, error)) *Impl {
	return &Impl{
		logger: logger,
		goos:   goos,
		getenv: getenv,
		home:   home,
	}
}

// DirAny resolves the platform config path.
// Windows uses %APPDATA%, macOS the user library, and everything else
// $XDG_CONFIG_HOME with a ~/.config fallback.
func (s *Impl) DirAny() (string, error) {
	switch s.goos {
	case "windows":
		appdata := s.getenv("APPDATA")
		if appdata == "" {
			return "", fmt.Errorf("APPDATA not set: %w", models.ErrConfigNotFound)
		}
		return filepath.Join(appdata, models.AppDirName), nil
	case "darwin":
		home, err := s.home()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", models.AppDirName), nil
	default:
		if xdg := s.getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, models.AppDirName), nil
		}
		home, err := s.home()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, ".config", models.AppDirName), nil
	}
}

// Dir resolves the platform config path and verifies it exists.
func (s *Impl) Dir() (string, error) {
	dir, err := s.DirAny()
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("obs config not found at %s: %w", dir, models.ErrConfigNotFound)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("obs config path %s is not a directory: %w", dir, models.ErrConfigNotFound)
	}

	s.logger.Debug().Str("dir", dir).Msg("resolved obs config directory")
	return dir, nil
}
