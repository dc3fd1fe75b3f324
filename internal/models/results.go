package models

// FileEntry is one file yielded by the walker: its POSIX-style path relative
// to the config root plus the absolute source path.
type FileEntry struct {
	RelPath string
	AbsPath string
}

// BackupResult reports a completed backup.
type BackupResult struct {
	BundleName  string
	Destination string // bundle folder, zip path, or repo-relative base path
	Files       int
}

// RestoreResult reports a completed restore.
type RestoreResult struct {
	Files        int
	SnapshotPath string // empty when no pre-restore snapshot was taken
}

// RestorePair is one file to write during the restore overwrite pass.
type RestorePair struct {
	RelPath string
	Data    []byte
}
