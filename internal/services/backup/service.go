// Package backup orchestrates backup runs to a local folder or a GitHub
// repository.
package backup

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/archiver"
	"github.com/Celestial04/obs-backup/internal/services/github"
	"github.com/Celestial04/obs-backup/internal/services/obsdir"
	"github.com/Celestial04/obs-backup/internal/services/walker"
	"github.com/rs/zerolog"
)

// progressEvery is the upload progress logging cadence.
const progressEvery = 50

// Service defines the interface for the backup orchestrator.
type Service interface {
	Run(ctx context.Context, cfg models.BackupConfig) (*models.BackupResult, error)
	ListRemoteBackups(ctx context.Context, gh models.GitHubConfig) ([]models.RepoContent, error)
}

// GitHubFactory builds a contents client for a token. Remote operations
// construct the client per run because the token arrives with the config.
type GitHubFactory func(token string) github.Service

// Impl implements the Service interface.
type Impl struct {
	locator     obsdir.Service
	walkerSvc   walker.Service
	archiverSvc archiver.Service
	newGitHub   GitHubFactory
	logger      zerolog.Logger
	now         func() time.Time
	hostname    func() (string, error)
}

// New creates a new backup orchestrator.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		locator:     obsdir.New(logger),
		walkerSvc:   walker.New(logger),
		archiverSvc: archiver.New(logger),
		newGitHub: func(token string) github.Service {
			return github.New(logger, token)
		},
		logger:   logger,
		now:      time.Now,
		hostname: os.Hostname,
	}
}

// NewWithServices creates a new backup orchestrator with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	locator obsdir.Service,
	walkerSvc walker.Service,
	archiverSvc archiver.Service,
	newGitHub GitHubFactory,
	now func() time.Time,
	hostname func() (string, error),
) *Impl {
	return &Impl{
		locator:     locator,
		walkerSvc:   walkerSvc,
		archiverSvc: archiverSvc,
		newGitHub:   newGitHub,
		logger:      logger,
		now:         now,
		hostname:    hostname,
	}
}

// Run executes one backup to the configured destination.
func (s *Impl) Run(ctx context.Context, cfg models.BackupConfig) (*models.BackupResult, error) {
	opts := walker.Options{
		IncludeLogs:  cfg.Backup.IncludeLogs,
		IncludeCache: cfg.Backup.IncludeCache,
	}

	if cfg.Destination.Type == models.DestinationGitHub {
		return s.runRemote(ctx, cfg, opts)
	}

	s.logger.Info().Str("dir", cfg.Destination.LocalDir).Msg("creating local backup")
	if cfg.Destination.Zip {
		return s.archiverSvc.CreateZip(cfg.Destination.LocalDir, opts)
	}
	return s.archiverSvc.CreateFolder(cfg.Destination.LocalDir, opts)
}

// runRemote uploads the config tree file by file; every file is its own
// commit, so a failure leaves the files already uploaded in place.
func (s *Impl) runRemote(ctx context.Context, cfg models.BackupConfig, opts walker.Options) (*models.BackupResult, error) {
	gh := cfg.GitHub
	if gh == nil || gh.Token == "" || gh.Repository == "" {
		return nil, models.ErrMissingCredentials
	}

	cfgDir, err := s.locator.Dir()
	if err != nil {
		return nil, err
	}

	client := s.newGitHub(gh.Token)
	bundle := archiver.BundleName(s.hostname, s.now)
	base := github.JoinPath(gh.Folder, bundle, models.AppDirName)

	s.logger.Info().
		Str("repository", gh.Repository).
		Str("path", base).
		Msg("starting remote backup")

	count := 0
	err = s.walkerSvc.Walk(cfgDir, opts, func(e models.FileEntry) error {
		data, err := os.ReadFile(e.AbsPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", e.AbsPath, err)
		}

		repoPath := github.JoinPath(base, e.RelPath)
		message := fmt.Sprintf("OBS backup %s: %s", bundle, e.RelPath)
		if err := client.PutFile(ctx, gh.Repository, gh.Branch, repoPath, data, message); err != nil {
			return err
		}

		count++
		if count%progressEvery == 0 {
			s.logger.Info().Int("files", count).Msg("uploading")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("after %d files: %w", count, err)
	}

	s.logger.Info().
		Int("files", count).
		Str("destination", gh.Repository+"/"+base).
		Msg("upload complete")

	return &models.BackupResult{BundleName: bundle, Destination: base, Files: count}, nil
}

// ListRemoteBackups lists the backup bundle directories under the configured
// repo folder, newest first (bundle names embed the timestamp).
func (s *Impl) ListRemoteBackups(ctx context.Context, gh models.GitHubConfig) ([]models.RepoContent, error) {
	if gh.Token == "" || gh.Repository == "" {
		return nil, models.ErrMissingCredentials
	}

	client := s.newGitHub(gh.Token)
	items, err := client.ListDir(ctx, gh.Repository, gh.Branch, gh.Folder)
	if err != nil {
		return nil, err
	}

	var dirs []models.RepoContent
	for _, it := range items {
		if it.Type == models.ContentTypeDir {
			dirs = append(dirs, it)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name > dirs[j].Name })

	s.logger.Info().Int("count", len(dirs)).Msg("remote backups listed")
	return dirs, nil
}
