package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Celestial04/obs-backup/internal/services/backup"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the OBS configuration",
	Long: `Back up the OBS Studio configuration directory to the configured
destination:
  local  - a timestamped bundle folder (or zip) under destination.local_dir
  github - one commit per file under github.folder in the chosen repository`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("destination", cfg.Destination.Type).
		Bool("include_logs", cfg.Backup.IncludeLogs).
		Bool("include_cache", cfg.Backup.IncludeCache).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	svc := backup.New(log.Logger)
	result, err := svc.Run(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	log.Info().
		Str("bundle", result.BundleName).
		Str("destination", result.Destination).
		Int("files", result.Files).
		Msg("backup completed successfully")
	return nil
}
