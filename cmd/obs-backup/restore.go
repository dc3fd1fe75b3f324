package main

import (
	"context"
	"fmt"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/restore"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the OBS configuration from a backup",
}

var restoreLocalCmd = &cobra.Command{
	Use:   "local [path]",
	Short: "Restore from a local backup folder or zip archive",
	Long: `Restore the OBS configuration from a local backup. The path may be a
bundle folder, the obs-studio folder itself, or a .zip archive. Defaults to
restore.local_path from the config file when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestoreLocal,
}

var restoreRemoteCmd = &cobra.Command{
	Use:   "remote [path]",
	Short: "Restore from a backup stored in the GitHub repository",
	Long: `Restore the OBS configuration from a backup directory in the configured
GitHub repository (see the backups command for available paths). Defaults to
restore.remote_path from the config file when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestoreRemote,
}

func init() {
	restoreCmd.AddCommand(restoreLocalCmd)
	restoreCmd.AddCommand(restoreRemoteCmd)
}

func runRestoreLocal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Restore.LocalPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		err := fmt.Errorf("restore.local_path or a path argument is required")
		log.Error().Err(err).Msg("no local backup selected")
		return err
	}

	svc := restore.New(log.Logger)
	result, err := svc.RestoreLocal(context.Background(), path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("local restore failed")
		return err
	}

	logRestoreResult(result)
	return nil
}

func runRestoreRemote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Restore.RemotePath
	if len(args) > 0 {
		path = args[0]
	}
	if cfg.GitHub == nil || path == "" {
		log.Error().Err(models.ErrMissingCredentials).Msg("remote restore needs a token, repository, and backup path")
		return models.ErrMissingCredentials
	}

	svc := restore.New(log.Logger)
	result, err := svc.RestoreRemote(context.Background(), *cfg.GitHub, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("remote restore failed")
		return err
	}

	logRestoreResult(result)
	return nil
}

func logRestoreResult(result *models.RestoreResult) {
	if result.SnapshotPath != "" {
		log.Info().Str("snapshot", result.SnapshotPath).Msg("previous config saved")
	}
	log.Info().Int("files", result.Files).Msg("restore complete; restart OBS to fully apply")
}
