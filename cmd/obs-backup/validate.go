package main

import (
	"fmt"
	"os"

	"github.com/Celestial04/obs-backup/internal/config"
	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without executing any backup or restore operations.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Destination: %s\n", cfg.Destination.Type)
	if cfg.Destination.Type == models.DestinationLocal {
		fmt.Printf("  Local dir: %s\n", cfg.Destination.LocalDir)
		fmt.Printf("  Zip bundles: %v\n", cfg.Destination.Zip)
	}
	fmt.Printf("  Include logs: %v\n", cfg.Backup.IncludeLogs)
	fmt.Printf("  Include caches: %v\n", cfg.Backup.IncludeCache)

	if cfg.GitHub != nil {
		fmt.Println()
		fmt.Println("GitHub Configuration:")
		fmt.Printf("  Repository: %s\n", cfg.GitHub.Repository)
		fmt.Printf("  Branch: %s\n", cfg.GitHub.Branch)
		fmt.Printf("  Folder: %s\n", cfg.GitHub.Folder)
		if cfg.GitHub.Token != "" {
			fmt.Printf("  Token: (configured)\n")
		} else {
			fmt.Printf("  Token: (not set)\n")
		}
	}

	if cfg.Restore.LocalPath != "" || cfg.Restore.RemotePath != "" {
		fmt.Println()
		fmt.Println("Restore Sources:")
		if cfg.Restore.LocalPath != "" {
			fmt.Printf("  Local: %s\n", cfg.Restore.LocalPath)
		}
		if cfg.Restore.RemotePath != "" {
			fmt.Printf("  Remote: %s\n", cfg.Restore.RemotePath)
		}
	}

	return nil
}
