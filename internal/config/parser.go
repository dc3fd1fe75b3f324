// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/spf13/viper"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.BackupConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.BackupConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.BackupConfig, error) {
	cfg := &models.BackupConfig{}

	// Parse destination settings.
	cfg.Destination = models.DestinationConfig{
		Type:     p.v.GetString("destination.type"),
		LocalDir: p.expandEnv(p.v.GetString("destination.local_dir")),
		Zip:      p.v.GetBool("destination.zip"),
	}

	if cfg.Destination.Type == "" {
		cfg.Destination.Type = models.DestinationLocal
	}
	validTypes := map[string]bool{models.DestinationLocal: true, models.DestinationGitHub: true}
	if !validTypes[cfg.Destination.Type] {
		return nil, fmt.Errorf("destination.type must be one of: local, github")
	}

	// Default local destination to ~/obs-backups.
	if cfg.Destination.LocalDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("destination.local_dir is not set and home directory is unknown: %w", err)
		}
		cfg.Destination.LocalDir = filepath.Join(home, "obs-backups")
	}

	// Parse backup settings.
	cfg.Backup = models.BackupSettings{
		IncludeLogs:  p.v.GetBool("backup.include_logs"),
		IncludeCache: p.v.GetBool("backup.include_cache"),
	}

	// Parse optional GitHub config.
	if p.v.IsSet("github") {
		cfg.GitHub = &models.GitHubConfig{
			Token:      p.expandEnv(p.v.GetString("github.token")),
			Repository: p.v.GetString("github.repository"),
			Branch:     p.v.GetString("github.branch"),
			Folder:     p.v.GetString("github.folder"),
		}

		// Set defaults.
		if cfg.GitHub.Branch == "" {
			cfg.GitHub.Branch = "main"
		}
		if cfg.GitHub.Folder == "" {
			cfg.GitHub.Folder = "obs-backups"
		}
	}

	// Parse restore settings.
	cfg.Restore = models.RestoreSettings{
		LocalPath:  p.expandEnv(p.v.GetString("restore.local_path")),
		RemotePath: p.v.GetString("restore.remote_path"),
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.BackupConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Destination.Type == models.DestinationGitHub && cfg.GitHub == nil {
		return fmt.Errorf("github section is required when destination.type is github")
	}

	if cfg.Destination.Type == models.DestinationLocal && cfg.Destination.LocalDir == "" {
		return fmt.Errorf("destination.local_dir is required when destination.type is local")
	}

	return nil
}
