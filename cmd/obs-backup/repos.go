package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Celestial04/obs-backup/internal/models"
	"github.com/Celestial04/obs-backup/internal/services/backup"
	"github.com/Celestial04/obs-backup/internal/services/github"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories accessible with the configured token",
	RunE:  runRepos,
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backups stored in the GitHub repository, newest first",
	RunE:  runBackups,
}

func runRepos(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.GitHub == nil || cfg.GitHub.Token == "" {
		log.Error().Err(models.ErrMissingCredentials).Msg("a github token is required to fetch repos")
		return models.ErrMissingCredentials
	}

	client := github.New(log.Logger, cfg.GitHub.Token)
	repos, err := client.ListUserRepos(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("fetching repos failed")
		return err
	}

	sort.Slice(repos, func(i, j int) bool {
		return strings.ToLower(repos[i].FullName) < strings.ToLower(repos[j].FullName)
	})
	for _, r := range repos {
		fmt.Println(r.FullName)
	}

	log.Info().Int("count", len(repos)).Msg("repositories loaded")
	return nil
}

func runBackups(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.GitHub == nil {
		log.Error().Err(models.ErrMissingCredentials).Msg("github configuration is required to list remote backups")
		return models.ErrMissingCredentials
	}

	svc := backup.New(log.Logger)
	dirs, err := svc.ListRemoteBackups(context.Background(), *cfg.GitHub)
	if err != nil {
		log.Error().Err(err).Msg("listing remote backups failed")
		return err
	}

	for _, d := range dirs {
		fmt.Printf("%s\t%s\n", d.Name, d.Path)
	}
	return nil
}
