// Package models contains the data structures used throughout obs-backup.
package models

// Destination kinds.
const (
	DestinationLocal  = "local"
	DestinationGitHub = "github"
)

// AppDirName is the name of the OBS Studio configuration directory. It is
// also the top-level directory inside every backup bundle.
const AppDirName = "obs-studio"

// BundlePrefix starts every backup bundle name.
const BundlePrefix = "obs-config"

// TimestampFormat is the stamp embedded in bundle and snapshot names.
const TimestampFormat = "20060102-150405"

// BackupConfig holds the complete configuration for a backup or restore run.
type BackupConfig struct {
	Destination DestinationConfig
	Backup      BackupSettings
	GitHub      *GitHubConfig // nil if not configured
	Restore     RestoreSettings
}

// DestinationConfig selects and parameterizes the backup destination.
type DestinationConfig struct {
	Type     string // "local" or "github"
	LocalDir string // base directory for local bundles
	Zip      bool   // write a zip bundle instead of a plain folder (local only)
}

// BackupSettings holds the walker flags shared by all backup operations.
type BackupSettings struct {
	IncludeLogs  bool
	IncludeCache bool
}

// GitHubConfig holds credentials and repository coordinates for remote
// operations. The token lives in memory only; it is never written back.
type GitHubConfig struct {
	Token      string
	Repository string // "owner/repo"
	Branch     string // defaults to "main"
	Folder     string // repo-relative folder holding backups
}

// RestoreSettings holds the restore source selection.
type RestoreSettings struct {
	LocalPath  string // folder or .zip for local restores
	RemotePath string // repo-relative backup directory for remote restores
}
